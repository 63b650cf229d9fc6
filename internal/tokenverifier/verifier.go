package tokenverifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/nao1215/authgate/pkg/auth"
)

// クレーム名。
const (
	claimSubject = "sub"
	claimEmail   = "email"
	claimRole    = "role"
)

// Config はVerifierの設定。
type Config struct {
	// Algorithm は受け付ける署名アルゴリズム（例: "HS256", "RS256"）。
	Algorithm string
	// Secret はHMAC系アルゴリズムの共有秘密鍵。
	Secret string
	// PublicKeyPEM はRSA/ECDSA/Ed25519系アルゴリズムのPEM形式公開鍵。
	PublicKeyPEM []byte
	// Issuer が空でなければissクレームと一致する必要がある。
	Issuer string
	// Audience が空でなければaudクレームに含まれる必要がある。
	Audience string
	// Leeway は時刻検証で許容するずれ。
	Leeway time.Duration
	// RequireExpiry がtrueならexpクレームを必須とする。
	RequireExpiry bool
	// Now は現在時刻を返す関数。nilの場合はtime.Now。
	Now func() time.Time
}

// Verifier は署名付きJWTをローカルで検証するauth.Verifier。
// 生成後は状態を持たず、並行呼び出しに対して安全。
type Verifier struct {
	parser *jwt.Parser
	method jwt.SigningMethod
	key    any
}

var _ auth.Verifier = (*Verifier)(nil)

// New は設定からVerifierを生成する。
func New(cfg Config) (*Verifier, error) {
	method, err := lookupMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	key, err := loadKey(method, cfg.Secret, cfg.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithJSONNumber(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	if cfg.RequireExpiry {
		opts = append(opts, jwt.WithExpirationRequired())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{
		parser: jwt.NewParser(opts...),
		method: method,
		key:    key,
	}, nil
}

// Algorithm は受け付ける署名アルゴリズム名を返す。
func (v *Verifier) Algorithm() string {
	return v.method.Alg()
}

// ParseToken はトークンの署名と時刻系クレームを検証し、クレームを返す。
// 失敗は全てKindCredentialExpiredOrInvalidSignatureになる。
func (v *Verifier) ParseToken(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, auth.NewError(auth.KindCredentialExpiredOrInvalidSignature, err)
	}
	if !parsed.Valid {
		return nil, auth.NewError(auth.KindCredentialExpiredOrInvalidSignature, errors.New("トークンが無効です"))
	}
	return claims, nil
}

// ExtractIdentity は検証済みクレームからIdentityを取り出す。
// 必須クレームが欠けている、または型が異なる場合はKindCredentialMalformedになる。
// 信頼判定は行わないため、ParseTokenが成功したクレームにのみ使用すること。
func ExtractIdentity(claims jwt.MapClaims) (auth.Identity, error) {
	userID, err := subjectID(claims[claimSubject])
	if err != nil {
		return auth.Identity{}, auth.NewError(auth.KindCredentialMalformed, err)
	}
	email, err := requiredString(claims, claimEmail)
	if err != nil {
		return auth.Identity{}, auth.NewError(auth.KindCredentialMalformed, err)
	}
	role, err := requiredString(claims, claimRole)
	if err != nil {
		return auth.Identity{}, auth.NewError(auth.KindCredentialMalformed, err)
	}
	return auth.Identity{UserID: userID, Email: email, Role: role}, nil
}

// Verify はParseTokenとExtractIdentityを順に実行する。ctxはログ出力にのみ使用する。
func (v *Verifier) Verify(ctx context.Context, cred auth.Credential) (auth.Identity, error) {
	if cred.IsZero() {
		return auth.Identity{}, auth.NewError(auth.KindCredentialAbsent, nil)
	}
	claims, err := v.ParseToken(cred.Reveal())
	if err != nil {
		return auth.Identity{}, err
	}
	id, err := ExtractIdentity(claims)
	if err != nil {
		return auth.Identity{}, err
	}
	zerolog.Ctx(ctx).Debug().Str("alg", v.method.Alg()).Object("identity", id).Msg("JWTを検証しました")
	return id, nil
}

// subjectID はsubクレームを整数のユーザーIDに変換する。
// JSON数値と10進数文字列の両方を受け付ける。
func subjectID(v any) (int64, error) {
	switch sub := v.(type) {
	case nil:
		return 0, fmt.Errorf("%sクレームがありません", claimSubject)
	case json.Number:
		id, err := sub.Int64()
		if err != nil {
			return 0, fmt.Errorf("%sクレームが整数ではありません: %w", claimSubject, err)
		}
		return id, nil
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%sクレームが整数ではありません: %w", claimSubject, err)
		}
		return id, nil
	case float64:
		if sub != math.Trunc(sub) || sub > math.MaxInt64 || sub < math.MinInt64 {
			return 0, fmt.Errorf("%sクレームが整数ではありません", claimSubject)
		}
		return int64(sub), nil
	default:
		return 0, fmt.Errorf("%sクレームの型が不正です: %T", claimSubject, v)
	}
}

// requiredString は空でない文字列クレームを取り出す。
func requiredString(claims jwt.MapClaims, name string) (string, error) {
	v, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("%sクレームがありません", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%sクレームの型が不正です: %T", name, v)
	}
	if s == "" {
		return "", fmt.Errorf("%sクレームが空です", name)
	}
	return s, nil
}
