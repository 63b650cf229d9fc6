// Package config はGatewayの設定を読み込む。
//
// 設定は任意のYAMLファイルと AUTHGATE_ 接頭辞の環境変数から読み込む。
// 環境変数のキーはドットをアンダースコアに置き換えたもの
// （例: auth.mode → AUTHGATE_AUTH_MODE）。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix は環境変数の接頭辞。
const EnvPrefix = "AUTHGATE"

// 検証方式。
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Config はGateway全体の設定。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Identity IdentityConfig `mapstructure:"identity"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Routes   []RouteConfig  `mapstructure:"routes"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig はログ出力の設定。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig は認証ゲートの設定。
type AuthConfig struct {
	// Mode は remote（認証サービスに委譲）か local（JWTをローカル検証）。
	Mode string `mapstructure:"mode"`
	// Carrier は header（Authorization: Bearer）か cookie。
	Carrier    string `mapstructure:"carrier"`
	CookieName string `mapstructure:"cookie_name"`
}

// IdentityConfig は認証サービスの設定。remoteモードでのみ使用する。
type IdentityConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// ResponseShape は envelope か bare。
	ResponseShape string        `mapstructure:"response_shape"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// JWTConfig はローカル検証の設定。localモードでのみ使用する。
type JWTConfig struct {
	Algorithm     string        `mapstructure:"algorithm"`
	Secret        string        `mapstructure:"secret"`
	PublicKeyFile string        `mapstructure:"public_key_file"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	Leeway        time.Duration `mapstructure:"leeway"`
	RequireExpiry bool          `mapstructure:"require_expiry"`
}

// CORSConfig はCORSの設定。
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RouteConfig は認証後に転送するルート。
type RouteConfig struct {
	// Prefix はGateway上のパス接頭辞（例: /api/v1/notes）。
	Prefix string `mapstructure:"prefix"`
	// Upstream は転送先のベースURL。
	Upstream string `mapstructure:"upstream"`
	// StripPrefix がtrueなら転送時にPrefixを取り除く。
	StripPrefix bool `mapstructure:"strip_prefix"`
}

// NewViper はデフォルト値と環境変数の対応を設定したviperを返す。
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.mode", ModeRemote)
	v.SetDefault("auth.carrier", "cookie")
	v.SetDefault("auth.cookie_name", "accessToken")
	v.SetDefault("identity.base_url", "")
	v.SetDefault("identity.response_shape", "envelope")
	v.SetDefault("identity.timeout", 5*time.Second)
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.public_key_file", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.leeway", time.Duration(0))
	v.SetDefault("jwt.require_expiry", true)
	v.SetDefault("cors.allowed_origins", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load はpathのYAMLファイル（空なら省略）と環境変数から設定を読み込み、検証する。
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値の組み合わせを検証する。
func (c *Config) Validate() error {
	var errs []error

	switch c.Auth.Carrier {
	case "header", "cookie":
	default:
		errs = append(errs, fmt.Errorf("auth.carrier は header か cookie を指定してください: %q", c.Auth.Carrier))
	}

	switch c.Auth.Mode {
	case ModeRemote:
		if c.Identity.BaseURL == "" {
			errs = append(errs, errors.New("remoteモードには identity.base_url が必要です"))
		} else if u, err := url.Parse(c.Identity.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("identity.base_url が不正です: %q", c.Identity.BaseURL))
		}
		switch c.Identity.ResponseShape {
		case "envelope", "bare":
		default:
			errs = append(errs, fmt.Errorf("identity.response_shape は envelope か bare を指定してください: %q", c.Identity.ResponseShape))
		}
		if c.Identity.Timeout <= 0 {
			errs = append(errs, errors.New("identity.timeout は正の値を指定してください"))
		}
	case ModeLocal:
		if strings.HasPrefix(strings.ToUpper(c.JWT.Algorithm), "HS") {
			if c.JWT.Secret == "" {
				errs = append(errs, errors.New("HMAC署名には jwt.secret が必要です"))
			}
		} else if c.JWT.PublicKeyFile == "" {
			errs = append(errs, fmt.Errorf("%s には jwt.public_key_file が必要です", c.JWT.Algorithm))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode は remote か local を指定してください: %q", c.Auth.Mode))
	}

	for i, r := range c.Routes {
		if !strings.HasPrefix(r.Prefix, "/") {
			errs = append(errs, fmt.Errorf("routes[%d].prefix は / で始めてください: %q", i, r.Prefix))
		}
		if u, err := url.Parse(r.Upstream); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("routes[%d].upstream が不正です: %q", i, r.Upstream))
		}
	}

	return errors.Join(errs...)
}

// PublicKeyPEM はjwt.public_key_fileの内容を読み込む。未設定ならnilを返す。
func (c JWTConfig) PublicKeyPEM() ([]byte, error) {
	if c.PublicKeyFile == "" {
		return nil, nil
	}
	b, err := os.ReadFile(c.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("公開鍵ファイルの読み込みに失敗: %w", err)
	}
	return b, nil
}
