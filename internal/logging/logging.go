// Package logging はzerologロガーを初期化する。
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New はレベルと形式を指定してロガーを生成する。formatは json か console。
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("ログレベルが不正です: %w", err)
	}

	switch format {
	case "json", "":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("ログ形式が不正です: %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
