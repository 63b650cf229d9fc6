package tokenverifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// loadKey は署名アルゴリズムに応じた検証鍵を生成する。
// HMAC系は共有秘密鍵、それ以外はPEM形式の公開鍵を使用する。
func loadKey(method jwt.SigningMethod, secret string, publicKeyPEM []byte) (any, error) {
	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		if secret == "" {
			return nil, errors.New("HMAC署名には秘密鍵が必要です")
		}
		return []byte(secret), nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("RSA公開鍵の読み込みに失敗: %w", err)
		}
		return key, nil
	case *jwt.SigningMethodECDSA:
		key, err := jwt.ParseECPublicKeyFromPEM(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("ECDSA公開鍵の読み込みに失敗: %w", err)
		}
		return key, nil
	case *jwt.SigningMethodEd25519:
		key, err := jwt.ParseEdPublicKeyFromPEM(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("Ed25519公開鍵の読み込みに失敗: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("未対応の署名アルゴリズムです: %s", method.Alg())
	}
}

// lookupMethod はアルゴリズム名から署名方式を取得する。"none"は受け付けない。
func lookupMethod(alg string) (jwt.SigningMethod, error) {
	if strings.EqualFold(alg, "none") {
		return nil, errors.New("署名なしトークンは受け付けません")
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("未知の署名アルゴリズムです: %q", alg)
	}
	return method, nil
}
