// API Gatewayの認証ゲートのエントリポイント。
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
// 資格情報を検証し、識別ヘッダーを付与して内部サービスに転送する。
package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run はコマンドを実行して終了コードを返す。
// 失敗時はエラーをstderrに出力する。ログ設定の読み込み前に失敗する場合もあるため、
// ここでは専用のコンソールロガーを使う。
func run(args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).With().Timestamp().Logger()
		logger.Error().Err(err).Msg("gatewayの実行に失敗しました")
		return 1
	}
	return 0
}
