package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nao1215/authgate/pkg/auth"
	"github.com/nao1215/authgate/pkg/metrics"
)

// 下流サービスに伝播する識別ヘッダー。
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// identityKey はGinコンテキストにIdentityを格納するキー。
const identityKey = "authgate.identity"

// authOptions はAuthenticateの追加設定。
type authOptions struct {
	metrics      *metrics.Auth
	verifierName string
}

// AuthOption はAuthenticateの設定を変更する関数。
type AuthOption func(*authOptions)

// WithAuthMetrics は検証結果を記録するメトリクスを設定する。
func WithAuthMetrics(m *metrics.Auth) AuthOption {
	return func(o *authOptions) { o.metrics = m }
}

// WithVerifierName はログとメトリクスに使用する検証方式の名前を設定する。
func WithVerifierName(name string) AuthOption {
	return func(o *authOptions) { o.verifierName = name }
}

// Authenticate は認証ゲートとなるGinミドルウェアを返す。
//
// extractorでトークンを取り出し、verifierで1回だけ検証する。
// 成功時は識別ヘッダーを上書きしたリクエストの複製で後続に進み、
// 失敗時は本文なしの401で処理を打ち切る。失敗の分類はログにのみ残す。
func Authenticate(extractor CredentialExtractor, verifier auth.Verifier, opts ...AuthOption) gin.HandlerFunc {
	o := authOptions{verifierName: "default"}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := zerolog.Ctx(ctx).With().
			Str("carrier", extractor.Carrier()).
			Str("verifier", o.verifierName).
			Logger()

		cred, ok := extractor.Extract(c.Request)
		if !ok {
			logger.Warn().Stringer("kind", auth.KindCredentialAbsent).Msg("資格情報がありません")
			o.metrics.ObserveRejection(o.verifierName, auth.KindCredentialAbsent.String())
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		start := time.Now()
		id, err := verifier.Verify(ctx, cred)
		elapsed := time.Since(start)

		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			logger.Debug().Err(ctxErr).Msg("検証中にリクエストがキャンセルされました")
			o.metrics.ObserveVerification(o.verifierName, metrics.ResultCanceled, elapsed)
			c.Abort()
			return
		}
		if err != nil {
			kind := auth.KindOf(err)
			logger.Warn().Stringer("kind", kind).Err(err).Msg("トークンの検証に失敗しました")
			o.metrics.ObserveVerification(o.verifierName, kind.String(), elapsed)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		logger.Debug().Object("identity", id).Dur("elapsed", elapsed).Msg("認証に成功しました")
		o.metrics.ObserveVerification(o.verifierName, metrics.ResultSuccess, elapsed)

		c.Request = withIdentityHeaders(c.Request, id)
		c.Set(identityKey, id)
		c.Next()
	}
}

// withIdentityHeaders はIdentityから識別ヘッダーを設定したリクエストの複製を返す。
// 呼び出し元が送った同名ヘッダーは大文字小文字を問わず削除してから設定する。
func withIdentityHeaders(r *http.Request, id auth.Identity) *http.Request {
	out := r.Clone(r.Context())
	for name := range out.Header {
		for _, h := range []string{HeaderUserID, HeaderUserEmail, HeaderUserRole} {
			if strings.EqualFold(name, h) {
				delete(out.Header, name)
			}
		}
	}
	out.Header.Set(HeaderUserID, strconv.FormatInt(id.UserID, 10))
	out.Header.Set(HeaderUserEmail, id.Email)
	out.Header.Set(HeaderUserRole, id.Role)
	return out
}

// IdentityFrom はAuthenticateが設定したIdentityをGinコンテキストから取得する。
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
