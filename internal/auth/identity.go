package auth

import (
	"net/http"
	"strings"
)

// DefaultIdentityHeader は認証プロキシがclaimed identityを転送するヘッダー名。
const DefaultIdentityHeader = "X-OpenID-Claimed-Id"

// maxClaimedIDLength はusers.claimed_idの列長。
const maxClaimedIDLength = 2048

// HeaderIdentity は前段の認証プロキシが付与したヘッダーからclaimed identityを取り出す。
// OpenIDのハンドシェイク自体はプロキシが行い、このサービスはヘッダーを信頼する。
type HeaderIdentity struct {
	header string
}

// NewHeaderIdentity はHeaderIdentityを生成する。headerが空の場合は既定のヘッダー名を使う。
func NewHeaderIdentity(header string) *HeaderIdentity {
	if header == "" {
		header = DefaultIdentityHeader
	}
	return &HeaderIdentity{header: header}
}

// Header は読み取るヘッダー名を返す。
func (h *HeaderIdentity) Header() string {
	return h.header
}

// ClaimedID はリクエストのclaimed identityを返す。
// ヘッダーが無い、空、または長すぎる場合はfalseを返す。
func (h *HeaderIdentity) ClaimedID(r *http.Request) (string, bool) {
	claimed := strings.TrimSpace(r.Header.Get(h.header))
	if claimed == "" || len(claimed) > maxClaimedIDLength {
		return "", false
	}
	return claimed, true
}
