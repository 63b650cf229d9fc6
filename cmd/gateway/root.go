package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/internal/logging"
)

// app はサブコマンド間で共有する状態。
type app struct {
	v          *viper.Viper
	configPath string
	logger     zerolog.Logger
}

// newRootCmd はルートコマンドを生成する。サブコマンドなしで実行するとserveと同じ動作になる。
func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), logger: zerolog.Nop()}

	serve := newServeCmd(a)
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: fmt.Sprintf("API Gateway 認証ゲート (version: %s)", Version),
		Long: `資格情報（Authorizationヘッダーまたはクッキー）を検証し、
認証済みのリクエストだけを識別ヘッダー付きで内部サービスに転送する。`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(a.v.GetString("log.level"), a.v.GetString("log.format"), os.Stderr)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		RunE: serve.RunE,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "設定ファイル（YAML）のパス")

	rootCmd.PersistentFlags().String("log-level", "info", "ログレベル (debug, info, warn, error)")
	_ = a.v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "json", "ログ形式 (json, console)")
	_ = a.v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serve, newVersionCmd())
	return rootCmd
}
