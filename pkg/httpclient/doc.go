// Package httpclient はGatewayから外部サービスへのJSON通信を行うクライアントを提供する。
//
// 認証サービスへのトークン検証リクエストなど、Gatewayが発行する
// サービス間通信のパターンを統一する。APIレスポンスの共通ラッパーである
// Envelopeもここで定義する。
package httpclient
