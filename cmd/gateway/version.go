package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version はビルド時に -ldflags で上書きされる。
var (
	Version    = "dev"
	CommitHash = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョン情報を表示する",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gateway %s (commit: %s)\n", Version, CommitHash)
		},
	}
}
