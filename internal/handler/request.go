package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/security"
)

// maxRequestBodySize はリクエストボディの上限（バイト）。
const maxRequestBodySize = 1 << 20

// coordinate はNodeの座標。数値（小数は切り捨て）と数値文字列のどちらも受け付ける。
type coordinate int

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (c *coordinate) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(b, &unquoted); err != nil {
			return err
		}
		s = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid coordinate %s", string(b))
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return fmt.Errorf("coordinate out of range %s", string(b))
	}
	*c = coordinate(int(f))
	return nil
}

// nodePayload はクライアントが送信したNode。textが無ければ空文字列として扱う。
type nodePayload struct {
	ID   string     `json:"id" validate:"max=64"`
	X    coordinate `json:"x"`
	Y    coordinate `json:"y"`
	Text string     `json:"text" validate:"max=10000"`
}

// endpointPayload はConnectionの端点。idが無ければ座標とテキストで送信Nodeを探す。
type endpointPayload struct {
	ID   string     `json:"id" validate:"max=64"`
	X    coordinate `json:"x"`
	Y    coordinate `json:"y"`
	Text string     `json:"text" validate:"max=10000"`
}

// themePayload はTheme。idが空なら新規作成。
type themePayload struct {
	ID                    string `json:"id" validate:"max=64"`
	Name                  string `json:"name" validate:"max=200"`
	BackgroundTopColor    string `json:"background_top_color" validate:"max=32"`
	BackgroundBottomColor string `json:"background_bottom_color" validate:"max=32"`
	NodeOuterColor        string `json:"node_outer_color" validate:"max=32"`
	NodeInnerColor        string `json:"node_inner_color" validate:"max=32"`
	NodeTextColor         string `json:"node_text_color" validate:"max=32"`
	ConnectionOuterColor  string `json:"connection_outer_color" validate:"max=32"`
	ConnectionInnerColor  string `json:"connection_inner_color" validate:"max=32"`
	ConnectionTextColor   string `json:"connection_text_color" validate:"max=32"`
}

// thoughtPayload はPOST/PUT /thought で送信されるThought。
type thoughtPayload struct {
	ID          string              `json:"id" validate:"max=64"`
	Name        string              `json:"name" validate:"max=255"`
	Theme       *themePayload       `json:"theme"`
	Nodes       []nodePayload       `json:"nodes" validate:"max=5000,dive"`
	Connections [][]endpointPayload `json:"connections" validate:"max=20000,dive,len=2,dive"`
}

// saveThoughtRequest はPOST/PUT /thought のリクエストボディ。
type saveThoughtRequest struct {
	Thought *thoughtPayload `json:"thought" validate:"required"`
}

// saveThemeRequest はPUT /theme のリクエストボディ。
type saveThemeRequest struct {
	Theme *themePayload `json:"theme" validate:"required"`
}

// requestValidator は構造体タグで宣言したリクエストの制約を検証する。
var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	// エラーメッセージにはJSONのフィールド名を使う
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON はボディをデコードして検証する。失敗した場合はBadRequestのAPIErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewBadRequestError("The request body is empty.")
		}
		return model.NewBadRequestError("The request body is not valid JSON.")
	}
	if err := requestValidator.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError はvalidatorのエラーを最初の違反フィールドを示すAPIErrorに変換する。
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewBadRequestError("The request is invalid.")
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return model.NewBadRequestError(fmt.Sprintf("%s is required.", field))
	case "len":
		return model.NewBadRequestError(fmt.Sprintf("%s must have exactly %s endpoints.", field, fe.Param()))
	default:
		return model.NewBadRequestError(fmt.Sprintf("%s is too long.", field))
	}
}

// clean はペイロード内の表示用テキストを正規化する。
// 端点のテキストもNodeと同じ規則で正規化しないと座標による照合が一致しなくなる。
func (p *thoughtPayload) clean(s security.TextSanitizer) {
	p.Name = s.Clean(p.Name)
	for i := range p.Nodes {
		p.Nodes[i].Text = s.Clean(p.Nodes[i].Text)
	}
	for _, pair := range p.Connections {
		for i := range pair {
			pair[i].Text = s.Clean(pair[i].Text)
		}
	}
	if p.Theme != nil {
		p.Theme.clean(s)
	}
}

func (p *themePayload) clean(s security.TextSanitizer) {
	p.Name = s.Clean(p.Name)
	p.BackgroundTopColor = s.Clean(p.BackgroundTopColor)
	p.BackgroundBottomColor = s.Clean(p.BackgroundBottomColor)
	p.NodeOuterColor = s.Clean(p.NodeOuterColor)
	p.NodeInnerColor = s.Clean(p.NodeInnerColor)
	p.NodeTextColor = s.Clean(p.NodeTextColor)
	p.ConnectionOuterColor = s.Clean(p.ConnectionOuterColor)
	p.ConnectionInnerColor = s.Clean(p.ConnectionInnerColor)
	p.ConnectionTextColor = s.Clean(p.ConnectionTextColor)
}

// requiredQuery はクエリパラメータnameを返す。空の場合はBadRequestのAPIErrorを返す。
func requiredQuery(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", model.NewBadRequestError(fmt.Sprintf("%s is required.", name))
	}
	return v, nil
}
