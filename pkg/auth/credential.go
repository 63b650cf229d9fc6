package auth

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// redacted はCredentialを文字列化した際に出力されるプレースホルダ。
const redacted = "[REDACTED]"

// Credential はリクエストから取り出した生のトークン。
// fmt、JSON、zerologのいずれで出力しても値は伏せられる。
// 生の値はReveal経由でのみ取得でき、検証処理以外で呼んではならない。
type Credential struct {
	raw string
}

// NewCredential は生トークンからCredentialを生成する。
func NewCredential(raw string) Credential {
	return Credential{raw: raw}
}

// Reveal は生トークンを返す。
func (c Credential) Reveal() string { return c.raw }

// IsZero はトークンが空かどうかを返す。
func (c Credential) IsZero() bool { return c.raw == "" }

// String implements fmt.Stringer.
func (c Credential) String() string { return redacted }

// GoString implements fmt.GoStringer.
func (c Credential) GoString() string { return redacted }

// MarshalText implements encoding.TextMarshaler.
func (c Credential) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// MarshalJSON implements json.Marshaler.
func (c Credential) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

// MarshalZerologObject はzerologに伏せ字とトークン長のみを出力する。
func (c Credential) MarshalZerologObject(e *zerolog.Event) {
	e.Str("value", redacted).Int("length", len(c.raw))
}
