// Package identityclient は認証サービスにトークン検証を委譲するVerifierを提供する。
//
// POST /v1/auth/token/validate にトークンを送り、返却されたユーザー情報を
// auth.Identityに変換する。レスポンス形式はEnvelope形式と素の形式があり、
// どちらを使うかは設定で固定する。実行時の自動判別は行わない。
package identityclient
