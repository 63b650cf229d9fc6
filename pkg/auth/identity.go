package auth

import (
	"context"

	"github.com/rs/zerolog"
)

// Identity は検証に成功した呼び出し元の識別情報。
// 値型であり、生成後に変更されない。
type Identity struct {
	// UserID はユーザーの一意識別子。
	UserID int64 `json:"userId"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール。認可判定には使用せず、下流に伝播するのみ。
	Role string `json:"role"`
}

// MarshalZerologObject はIdentityをzerologの構造化フィールドとして出力する。
func (i Identity) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("user_id", i.UserID).Str("email", i.Email).Str("role", i.Role)
}

// Verifier はCredentialを検証してIdentityを返す。
// 実装は並行呼び出しに対して安全でなければならない。
type Verifier interface {
	// Verify は失敗時に *VerificationError を返す。
	Verify(ctx context.Context, cred Credential) (Identity, error)
}

// VerifierFunc は関数をVerifierとして扱うためのアダプタ。
type VerifierFunc func(ctx context.Context, cred Credential) (Identity, error)

// Verify はVerifierを実装する。
func (f VerifierFunc) Verify(ctx context.Context, cred Credential) (Identity, error) {
	return f(ctx, cred)
}
