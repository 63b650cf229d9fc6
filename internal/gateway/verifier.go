package gateway

import (
	"fmt"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/internal/identityclient"
	"github.com/nao1215/authgate/internal/tokenverifier"
	"github.com/nao1215/authgate/pkg/auth"
)

// NewVerifier は設定されたモードに応じてVerifierを1つだけ生成する。
// 戻り値の文字列はログとメトリクスで使用する検証方式の名前。
func NewVerifier(cfg *config.Config) (auth.Verifier, string, error) {
	switch cfg.Auth.Mode {
	case config.ModeRemote:
		shape, err := identityclient.ParseResponseShape(cfg.Identity.ResponseShape)
		if err != nil {
			return nil, "", err
		}
		client := identityclient.New(cfg.Identity.BaseURL,
			identityclient.WithResponseShape(shape),
			identityclient.WithTimeout(cfg.Identity.Timeout),
		)
		return client, config.ModeRemote, nil
	case config.ModeLocal:
		pem, err := cfg.JWT.PublicKeyPEM()
		if err != nil {
			return nil, "", err
		}
		v, err := tokenverifier.New(tokenverifier.Config{
			Algorithm:     cfg.JWT.Algorithm,
			Secret:        cfg.JWT.Secret,
			PublicKeyPEM:  pem,
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			RequireExpiry: cfg.JWT.RequireExpiry,
		})
		if err != nil {
			return nil, "", fmt.Errorf("JWT検証器の初期化に失敗: %w", err)
		}
		return v, config.ModeLocal, nil
	default:
		return nil, "", fmt.Errorf("未知の検証方式です: %q", cfg.Auth.Mode)
	}
}
