package auth

import (
	"errors"
)

// Kind は検証失敗の分類。
// ゲートは全ての分類を401に集約し、分類はログにのみ残す。
type Kind int

const (
	// KindUnknown は分類できない失敗。
	KindUnknown Kind = iota
	// KindCredentialAbsent はトークンがリクエストに含まれない。
	KindCredentialAbsent
	// KindCredentialMalformed はクレームの欠落や型の不一致。
	KindCredentialMalformed
	// KindCredentialExpiredOrInvalidSignature は署名不一致、構造破損、期限切れ。
	KindCredentialExpiredOrInvalidSignature
	// KindRemoteUnreachable は認証サービスとの通信失敗。
	KindRemoteUnreachable
	// KindRemoteRejected は認証サービスがトークンを受理しなかった。
	KindRemoteRejected
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindCredentialAbsent:
		return "credential_absent"
	case KindCredentialMalformed:
		return "credential_malformed"
	case KindCredentialExpiredOrInvalidSignature:
		return "credential_expired_or_invalid_signature"
	case KindRemoteUnreachable:
		return "remote_unreachable"
	case KindRemoteRejected:
		return "remote_rejected"
	default:
		return "unknown"
	}
}

// 各分類に対応する番兵エラー。errors.Isで分類を判定できる。
var (
	ErrCredentialAbsent                    = &VerificationError{Kind: KindCredentialAbsent}
	ErrCredentialMalformed                 = &VerificationError{Kind: KindCredentialMalformed}
	ErrCredentialExpiredOrInvalidSignature = &VerificationError{Kind: KindCredentialExpiredOrInvalidSignature}
	ErrRemoteUnreachable                   = &VerificationError{Kind: KindRemoteUnreachable}
	ErrRemoteRejected                      = &VerificationError{Kind: KindRemoteRejected}
)

// VerificationError はVerifierが返す分類付きのエラー。
// Errにはトークン文字列を含めてはならない。
type VerificationError struct {
	// Kind は失敗の分類。
	Kind Kind
	// Err は原因となったエラー。nilの場合もある。
	Err error
}

// NewError は分類と原因からVerificationErrorを生成する。
func NewError(kind Kind, err error) *VerificationError {
	return &VerificationError{Kind: kind, Err: err}
}

// Error implements error.
func (e *VerificationError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap は原因となったエラーを返す。
func (e *VerificationError) Unwrap() error { return e.Err }

// Is は同じ分類のVerificationErrorと一致する。
func (e *VerificationError) Is(target error) bool {
	var t *VerificationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf はerrに含まれる分類を返す。VerificationErrorでなければKindUnknown。
func KindOf(err error) Kind {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}
