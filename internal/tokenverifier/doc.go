// Package tokenverifier は署名付きJWTをネットワーク通信なしで検証するVerifierを提供する。
//
// 署名と時刻系クレーム（exp, nbf, iat）の検証はParseToken、
// クレームからのユーザー情報の取り出しはExtractIdentityが担当する。
// どちらも純粋な計算であり、I/Oを行わない。
package tokenverifier
