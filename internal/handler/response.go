package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// nodeResponse はNodeのAPIレスポンス。
type nodeResponse struct {
	ID   string `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Text string `json:"text"`
}

// connectionResponse はConnectionのAPIレスポンス。端点はNodeのIDで示す。
type connectionResponse struct {
	NodeOne string `json:"nodeOne"`
	NodeTwo string `json:"nodeTwo"`
}

// themeResponse はThemeのAPIレスポンス。
type themeResponse struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	BackgroundTopColor    string `json:"background_top_color"`
	BackgroundBottomColor string `json:"background_bottom_color"`
	NodeOuterColor        string `json:"node_outer_color"`
	NodeInnerColor        string `json:"node_inner_color"`
	NodeTextColor         string `json:"node_text_color"`
	ConnectionOuterColor  string `json:"connection_outer_color"`
	ConnectionInnerColor  string `json:"connection_inner_color"`
	ConnectionTextColor   string `json:"connection_text_color"`
}

// thoughtResponse はGET /thought で返すThought。Themeが無い場合themeはnull。
type thoughtResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Theme       *themeResponse       `json:"theme"`
	Nodes       []nodeResponse       `json:"nodes"`
	Connections []connectionResponse `json:"connections"`
	Modifiable  bool                 `json:"modifiable"`
	IsPublic    bool                 `json:"isPublic"`
}

// thoughtDescriptionResponse はThought一覧の要素。
type thoughtDescriptionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// userResponse はGET /me で返すユーザー。
type userResponse struct {
	ID        string `json:"id"`
	ClaimedID string `json:"claimedId"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type idResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type thoughtEnvelope struct {
	Success bool             `json:"success"`
	Thought *thoughtResponse `json:"thought"`
}

type thoughtDescriptionsEnvelope struct {
	Success             bool                         `json:"success"`
	ThoughtDescriptions []thoughtDescriptionResponse `json:"thoughtDescriptions"`
}

type userEnvelope struct {
	Success bool          `json:"success"`
	User    *userResponse `json:"user"`
}

// writeJSON はvをJSONとして書き込む。
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
