// Package auth はAPI Gatewayの認証ゲートが扱うドメイン型を提供する。
//
// 認証済みユーザーを表すIdentity、生トークンを包むCredential、
// 検証方式を抽象化するVerifierインターフェース、検証失敗の分類を含む。
// リモート検証（identityclient）とローカル検証（tokenverifier）は
// どちらもVerifierを実装し、ゲートはどちらか一方のみを使用する。
package auth
