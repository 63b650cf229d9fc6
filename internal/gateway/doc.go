// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線として
// 機能する。全ての保護ルートに認証ゲートを適用し、検証済みの識別ヘッダーを
// 付与したリクエストのみを内部サービスに転送する。
package gateway
