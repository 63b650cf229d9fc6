package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/internal/gateway"
)

// newServeCmd はGatewayを起動するserveコマンドを生成する。
func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Gatewayサーバーを起動する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configPath)
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗: %w", err)
			}
			if a.configPath != "" {
				a.logger.Debug().Str("path", a.configPath).Msg("設定ファイルを読み込みました")
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			server, err := gateway.NewServer(cfg, a.logger, reg)
			if err != nil {
				return fmt.Errorf("Gatewayサーバーの初期化に失敗: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.Run(ctx); err != nil {
				return err
			}
			a.logger.Info().Msg("Gatewayサービスを停止しました")
			return nil
		},
	}
}

