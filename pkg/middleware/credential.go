package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/authgate/pkg/auth"
)

// bearerPrefix はAuthorizationヘッダーのBearerトークン接頭辞。大文字小文字を区別する。
const bearerPrefix = "Bearer "

// DefaultCookieName はアクセストークンを格納するCookieのデフォルト名。
const DefaultCookieName = "accessToken"

// 資格情報の運搬方式。
const (
	CarrierHeader = "header"
	CarrierCookie = "cookie"
)

// CredentialExtractor はリクエストからトークンを取り出す。
// トークンが存在しない場合はfalseを返す。
type CredentialExtractor interface {
	Extract(r *http.Request) (auth.Credential, bool)
	// Carrier は運搬方式の名前を返す。ログ出力用。
	Carrier() string
}

// BearerHeaderExtractor は "Authorization: Bearer <token>" からトークンを取り出す。
type BearerHeaderExtractor struct{}

// Extract implements CredentialExtractor.
func (BearerHeaderExtractor) Extract(r *http.Request) (auth.Credential, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !found || token == "" {
		return auth.Credential{}, false
	}
	return auth.NewCredential(token), true
}

// Carrier implements CredentialExtractor.
func (BearerHeaderExtractor) Carrier() string { return CarrierHeader }

// CookieExtractor は指定名のCookieからトークンを取り出す。
type CookieExtractor struct {
	// Name はCookie名。
	Name string
}

// Extract implements CredentialExtractor.
func (e CookieExtractor) Extract(r *http.Request) (auth.Credential, bool) {
	cookie, err := r.Cookie(e.Name)
	if err != nil || cookie.Value == "" {
		return auth.Credential{}, false
	}
	return auth.NewCredential(cookie.Value), true
}

// Carrier implements CredentialExtractor.
func (CookieExtractor) Carrier() string { return CarrierCookie }

// NewCredentialExtractor は運搬方式に応じたCredentialExtractorを生成する。
// 1つのゲートは1つの運搬方式のみを参照する。
func NewCredentialExtractor(carrier, cookieName string) (CredentialExtractor, error) {
	switch carrier {
	case CarrierHeader:
		return BearerHeaderExtractor{}, nil
	case CarrierCookie:
		if cookieName == "" {
			cookieName = DefaultCookieName
		}
		return CookieExtractor{Name: cookieName}, nil
	default:
		return nil, fmt.Errorf("未知の運搬方式です: %q", carrier)
	}
}
