package identityclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nao1215/authgate/pkg/auth"
	"github.com/nao1215/authgate/pkg/httpclient"
)

// ValidatePath はトークン検証エンドポイントのパス。
const ValidatePath = "/v1/auth/token/validate"

// ResponseShape は認証サービスのレスポンス形式。
type ResponseShape string

const (
	// ShapeEnvelope は {"status","code","message","data"} で包まれた形式。
	ShapeEnvelope ResponseShape = "envelope"
	// ShapeBare は {"userId","email","role"} のみの形式。
	ShapeBare ResponseShape = "bare"
)

// ParseResponseShape は設定値をResponseShapeに変換する。
func ParseResponseShape(s string) (ResponseShape, error) {
	switch ResponseShape(s) {
	case ShapeEnvelope, ShapeBare:
		return ResponseShape(s), nil
	default:
		return "", fmt.Errorf("未知のレスポンス形式です: %q", s)
	}
}

// validateRequest は検証リクエストのボディ。
type validateRequest struct {
	Token string `json:"token"`
}

// validateResponse は検証レスポンスのペイロード。
// 欠落を検出するためにポインタで受ける。
type validateResponse struct {
	UserID *int64  `json:"userId"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
}

// identity はペイロードをIdentityに変換する。必須項目が欠けていればfalseを返す。
func (r validateResponse) identity() (auth.Identity, bool) {
	if r.UserID == nil || r.Email == nil || r.Role == nil || *r.Email == "" || *r.Role == "" {
		return auth.Identity{}, false
	}
	return auth.Identity{UserID: *r.UserID, Email: *r.Email, Role: *r.Role}, true
}

// Client は認証サービスにトークン検証を委譲するVerifier。
type Client struct {
	// http は認証サービスとの通信に使用するクライアント。
	http *httpclient.Client
	// shape はレスポンス形式。
	shape ResponseShape
}

var _ auth.Verifier = (*Client)(nil)

// Option はClientの設定を変更する関数。
type Option func(*options)

type options struct {
	shape   ResponseShape
	httpOps []httpclient.Option
}

// WithResponseShape はレスポンス形式を設定する。デフォルトはShapeEnvelope。
func WithResponseShape(shape ResponseShape) Option {
	return func(o *options) { o.shape = shape }
}

// WithTimeout は認証サービス呼び出しのタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.httpOps = append(o.httpOps, httpclient.WithTimeout(d)) }
}

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpOps = append(o.httpOps, httpclient.WithHTTPClient(hc)) }
}

// New は認証サービスのベースURLからClientを生成する。
func New(baseURL string, opts ...Option) *Client {
	o := options{shape: ShapeEnvelope}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		http:  httpclient.New(baseURL, o.httpOps...),
		shape: o.shape,
	}
}

// Verify は認証サービスにトークンを送り、検証結果をIdentityとして返す。
// 通信失敗、タイムアウト、5xx、解析不能なボディはKindRemoteUnreachable、
// 4xxやサービスが受理しなかった結果はKindRemoteRejectedになる。
func (c *Client) Verify(ctx context.Context, cred auth.Credential) (auth.Identity, error) {
	if cred.IsZero() {
		return auth.Identity{}, auth.NewError(auth.KindCredentialAbsent, nil)
	}

	logger := zerolog.Ctx(ctx).With().Str("identity_service", c.http.BaseURL()).Str("shape", string(c.shape)).Logger()
	req := validateRequest{Token: cred.Reveal()}

	var (
		payload validateResponse
		err     error
	)
	switch c.shape {
	case ShapeBare:
		err = c.http.PostJSON(ctx, ValidatePath, req, &payload)
	default:
		var env httpclient.Envelope[validateResponse]
		err = c.http.PostJSON(ctx, ValidatePath, req, &env)
		if err == nil {
			if !env.Succeeded() {
				logger.Debug().Int("status", env.Status).Str("code", env.Code).Msg("認証サービスがトークンを受理しませんでした")
				return auth.Identity{}, auth.NewError(auth.KindRemoteRejected,
					fmt.Errorf("status=%d, code=%s", env.Status, env.Code))
			}
			payload = *env.Data
		}
	}
	if err != nil {
		return auth.Identity{}, classify(err)
	}

	id, ok := payload.identity()
	if !ok {
		return auth.Identity{}, auth.NewError(auth.KindRemoteRejected, errors.New("ユーザー情報に必須項目が含まれていません"))
	}
	logger.Debug().Object("identity", id).Msg("認証サービスでトークンを検証しました")
	return id, nil
}

// classify は通信エラーを検証失敗の分類に変換する。
func classify(err error) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		return auth.NewError(auth.KindRemoteRejected, err)
	}
	return auth.NewError(auth.KindRemoteUnreachable, err)
}
