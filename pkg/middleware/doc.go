// Package middleware はAPI Gatewayで使用するGinミドルウェアを提供する。
//
// 中心は認証ゲート（Authenticate）で、Cookieまたは
// Authorizationヘッダーからトークンを取り出し、設定された1つのVerifierで
// 検証して識別ヘッダー（X-User-Id, X-User-Email, X-User-Role）を付与する。
// そのほかリクエストID、アクセスログ、パニックリカバリ、CORSを含む。
package middleware
