package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/pkg/auth"
	"github.com/nao1215/authgate/pkg/metrics"
	"github.com/nao1215/authgate/pkg/middleware"
)

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はGatewayの設定。
	cfg *config.Config
	// logger はサーバー全体のロガー。
	logger zerolog.Logger
}

// NewServer は新しいGatewayサーバーを生成する。
// 設定に従ってVerifierを1つ選び、全ての保護ルートに同じ認証ゲートを適用する。
func NewServer(cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) (*Server, error) {
	verifier, name, err := NewVerifier(cfg)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, logger, reg, verifier, name)
}

// newServer は生成済みのVerifierからサーバーを組み立てる。
func newServer(cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry, verifier auth.Verifier, verifierName string) (*Server, error) {
	extractor, err := middleware.NewCredentialExtractor(cfg.Auth.Carrier, cfg.Auth.CookieName)
	if err != nil {
		return nil, err
	}
	authMetrics, err := metrics.NewAuth(reg)
	if err != nil {
		return nil, fmt.Errorf("メトリクスの登録に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins, cfg.Auth.Carrier == middleware.CarrierCookie))

	s := &Server{
		router: router,
		cfg:    cfg,
		logger: logger,
	}

	gate := middleware.Authenticate(extractor, verifier,
		middleware.WithAuthMetrics(authMetrics),
		middleware.WithVerifierName(verifierName),
	)
	if err := s.setupRoutes(gate, reg); err != nil {
		return nil, err
	}

	logger.Info().
		Str("mode", verifierName).
		Str("carrier", extractor.Carrier()).
		Int("routes", len(cfg.Routes)).
		Msg("Gatewayを初期化しました")
	return s, nil
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
// キャンセル後は処理中のリクエストを待ってから停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Gatewayサービスを起動します")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("Gatewayサービスの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Gatewayサービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Gatewayサービスの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
// 転送ルートが既存のパスと衝突した場合はGinのpanicをエラーとして返す。
func (s *Server) setupRoutes(gate gin.HandlerFunc, reg *prometheus.Registry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ルートの登録に失敗: %v", r)
		}
	}()

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// 認証必須のAPIエンドポイント
	api := s.router.Group("/api/v1", gate)
	api.GET("/me", s.handleGetCurrentUser())

	for _, route := range s.cfg.Routes {
		proxy, err := newProxy(route)
		if err != nil {
			return err
		}
		prefix := strings.TrimSuffix(route.Prefix, "/")
		if overlapsBuiltin(prefix) {
			return fmt.Errorf("転送ルートが組み込みのパスと重複しています: %q", route.Prefix)
		}
		group := s.router.Group(prefix, gate)
		group.Any("", handleProxy(proxy))
		group.Any("/*path", handleProxy(proxy))
	}
	return nil
}

// builtinPaths はGateway自身が応答するパス。
var builtinPaths = []string{"/health", "/metrics", "/api/v1/me"}

// overlapsBuiltin はprefix配下に組み込みのパスが含まれるかを判定する。
func overlapsBuiltin(prefix string) bool {
	if prefix == "" {
		return true
	}
	for _, p := range builtinPaths {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// handleGetCurrentUser は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, id)
	}
}
