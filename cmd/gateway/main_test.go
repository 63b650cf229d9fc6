package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// invalidConfig はidentity.base_urlが欠けた設定ファイルを書き出してパスを返す。
func invalidConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	yaml := "auth:\n  mode: remote\n  carrier: cookie\nidentity:\n  base_url: \"\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("設定ファイルの作成に失敗: %v", err)
	}
	return path
}

func TestRootCmd(t *testing.T) {
	t.Parallel()

	t.Run("versionコマンドがバージョンを出力すること", func(t *testing.T) {
		t.Parallel()

		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute()でエラーが発生: %v", err)
		}
		if !strings.Contains(out.String(), Version) {
			t.Errorf("出力 = %q, バージョン %q を含むべき", out.String(), Version)
		}
	})

	t.Run("不正なログレベルはエラーになること", func(t *testing.T) {
		t.Parallel()

		cmd := newRootCmd()
		cmd.SetArgs([]string{"version", "--log-level", "verbose"})

		if err := cmd.Execute(); err == nil {
			t.Fatal("Execute()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("設定が不正な場合serveはエラーになること", func(t *testing.T) {
		t.Parallel()

		cmd := newRootCmd()
		cmd.SetArgs([]string{"serve", "--config", invalidConfig(t)})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("Execute()がエラーを返すべきだが、nilが返った")
		}
		if !strings.Contains(err.Error(), "identity.base_url") {
			t.Errorf("エラー = %v, identity.base_url を含むべき", err)
		}
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args func(t *testing.T) []string
		want string
	}{
		{"不正な設定ファイル", func(t *testing.T) []string { return []string{"serve", "--config", invalidConfig(t)} }, "identity.base_url"},
		{"不正なログレベル", func(*testing.T) []string { return []string{"version", "--log-level", "verbose"} }, "ログレベルが不正です"},
		{"不正なログ形式", func(*testing.T) []string { return []string{"version", "--log-format", "xml"} }, "ログ形式が不正です"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"ではエラーがstderrに出力され終了コード1になること", func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			if code := run(tt.args(t), &stderr); code != 1 {
				t.Errorf("終了コード = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr = %q, %q を含むべき", stderr.String(), tt.want)
			}
		})
	}

	t.Run("成功時は終了コード0でstderrに何も出力しないこと", func(t *testing.T) {
		t.Parallel()

		var stderr bytes.Buffer
		if code := run([]string{"version"}, &stderr); code != 0 {
			t.Errorf("終了コード = %d, want 0", code)
		}
		if stderr.Len() != 0 {
			t.Errorf("stderr = %q, want empty", stderr.String())
		}
	})
}

// TestMainProcess はビルドされたプロセスとして起動した場合の失敗時の出力を検証する。
// 子プロセスではGATEWAY_MAIN_ARGSの引数でmainを実行する。
func TestMainProcess(t *testing.T) {
	if args := os.Getenv("GATEWAY_MAIN_ARGS"); args != "" {
		os.Args = append([]string{"gateway"}, strings.Split(args, "\n")...)
		main()
		return
	}
	t.Parallel()

	cmd := exec.Command(os.Args[0], "-test.run=^TestMainProcess$")
	cmd.Env = append(os.Environ(), "GATEWAY_MAIN_ARGS="+strings.Join([]string{"serve", "--config", invalidConfig(t)}, "\n"))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("終了コード1で終了するべきだが %v が返った (stdout=%q)", err, stdout.String())
	}
	if stderr.Len() == 0 {
		t.Fatal("stderrに何も出力されていない")
	}
	if !strings.Contains(stderr.String(), "identity.base_url") {
		t.Errorf("stderr = %q, identity.base_url を含むべき", stderr.String())
	}
}
