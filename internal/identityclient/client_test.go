package identityclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nao1215/authgate/pkg/auth"
)

// testToken はテスト用のトークン文字列。
const testToken = "opaque-access-token-value"

// newIdentityService はテスト用の認証サービスを起動する。
// 受信したトークンを記録し、常にstatusとbodyで応答する。
func newIdentityService(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()

	var calls atomic.Int32
	var gotToken atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != ValidatePath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			gotToken.Store(req.Token)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls, &gotToken
}

// TestClient_Verify_Envelope はEnvelope形式のレスポンスを検証する。
func TestClient_Verify_Envelope(t *testing.T) {
	t.Parallel()

	t.Run("成功レスポンスからIdentityを取り出せること", func(t *testing.T) {
		t.Parallel()

		ts, calls, gotToken := newIdentityService(t, http.StatusOK,
			`{"status":200,"code":"OK","message":"success","data":{"userId":42,"email":"a@b.com","role":"ADMIN"}}`)

		id, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if err != nil {
			t.Fatalf("Verify()でエラーが発生: %v", err)
		}
		want := auth.Identity{UserID: 42, Email: "a@b.com", Role: "ADMIN"}
		if id != want {
			t.Errorf("Identity = %+v, want %+v", id, want)
		}
		if calls.Load() != 1 {
			t.Errorf("呼び出し回数 = %d, want 1", calls.Load())
		}
		if got, _ := gotToken.Load().(string); got != testToken {
			t.Errorf("送信されたトークン = %q, want %q", got, testToken)
		}
	})

	t.Run("失敗ステータスのEnvelopeはRemoteRejectedになること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK,
			`{"status":401,"code":"INVALID_TOKEN","message":"invalid","data":null}`)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteRejected) {
			t.Fatalf("RemoteRejectedが返るべきだが %v が返った", err)
		}
	})

	t.Run("dataがnullの成功ステータスはRemoteRejectedになること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK, `{"status":200,"code":"OK","message":"success","data":null}`)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteRejected) {
			t.Fatalf("RemoteRejectedが返るべきだが %v が返った", err)
		}
	})

	t.Run("必須項目が欠けたdataはRemoteRejectedになること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK, `{"status":200,"data":{"userId":42,"email":"a@b.com"}}`)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteRejected) {
			t.Fatalf("RemoteRejectedが返るべきだが %v が返った", err)
		}
	})

	t.Run("素の形式のレスポンスはEnvelope設定では受理されないこと", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK, `{"userId":42,"email":"a@b.com","role":"ADMIN"}`)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteRejected) {
			t.Fatalf("RemoteRejectedが返るべきだが %v が返った", err)
		}
	})
}

// TestClient_Verify_Bare は素の形式のレスポンスを検証する。
func TestClient_Verify_Bare(t *testing.T) {
	t.Parallel()

	t.Run("素の形式からIdentityを取り出せること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK, `{"userId":7,"email":"u@example.com","role":"USER"}`)

		id, err := New(ts.URL, WithResponseShape(ShapeBare)).Verify(context.Background(), auth.NewCredential(testToken))
		if err != nil {
			t.Fatalf("Verify()でエラーが発生: %v", err)
		}
		want := auth.Identity{UserID: 7, Email: "u@example.com", Role: "USER"}
		if id != want {
			t.Errorf("Identity = %+v, want %+v", id, want)
		}
	})

	t.Run("Envelope形式のレスポンスは素の形式設定では受理されないこと", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK,
			`{"status":200,"data":{"userId":42,"email":"a@b.com","role":"ADMIN"}}`)

		_, err := New(ts.URL, WithResponseShape(ShapeBare)).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteRejected) {
			t.Fatalf("RemoteRejectedが返るべきだが %v が返った", err)
		}
	})
}

// TestClient_Verify_Failures は通信失敗時の分類を検証する。
func TestClient_Verify_Failures(t *testing.T) {
	t.Parallel()

	t.Run("接続できない場合はRemoteUnreachableになること", func(t *testing.T) {
		t.Parallel()

		_, err := New("http://127.0.0.1:1").Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteUnreachable) {
			t.Fatalf("RemoteUnreachableが返るべきだが %v が返った", err)
		}
	})

	t.Run("4xxはRemoteRejectedになること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusUnauthorized, `{"status":401,"data":null}`)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteRejected) {
			t.Fatalf("RemoteRejectedが返るべきだが %v が返った", err)
		}
	})

	t.Run("5xxはRemoteUnreachableになること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusServiceUnavailable, ``)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteUnreachable) {
			t.Fatalf("RemoteUnreachableが返るべきだが %v が返った", err)
		}
	})

	t.Run("解析できないボディはRemoteUnreachableになること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK, `<html>gateway error</html>`)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteUnreachable) {
			t.Fatalf("RemoteUnreachableが返るべきだが %v が返った", err)
		}
	})

	t.Run("JSONの後に余分なデータが続くボディはRemoteUnreachableになること", func(t *testing.T) {
		t.Parallel()

		for _, shape := range []ResponseShape{ShapeEnvelope, ShapeBare} {
			body := `{"userId":1,"email":"a","role":"b"}garbage`
			if shape == ShapeEnvelope {
				body = `{"status":200,"data":{"userId":1,"email":"a","role":"b"}}garbage`
			}
			ts, _, _ := newIdentityService(t, http.StatusOK, body)

			_, err := New(ts.URL, WithResponseShape(shape)).Verify(context.Background(), auth.NewCredential(testToken))
			if !errors.Is(err, auth.ErrRemoteUnreachable) {
				t.Errorf("%s: RemoteUnreachableが返るべきだが %v が返った", shape, err)
			}
		}
	})

	t.Run("素の形式でnullのボディはRemoteRejectedになること", func(t *testing.T) {
		t.Parallel()

		ts, _, _ := newIdentityService(t, http.StatusOK, `null`)

		_, err := New(ts.URL, WithResponseShape(ShapeBare)).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteRejected) {
			t.Fatalf("RemoteRejectedが返るべきだが %v が返った", err)
		}
	})

	t.Run("タイムアウトはRemoteUnreachableになること", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer ts.Close()
		defer close(release)

		_, err := New(ts.URL, WithTimeout(50*time.Millisecond)).Verify(context.Background(), auth.NewCredential(testToken))
		if !errors.Is(err, auth.ErrRemoteUnreachable) {
			t.Fatalf("RemoteUnreachableが返るべきだが %v が返った", err)
		}
	})

	t.Run("キャンセルされたコンテキストでは呼び出しが中断されること", func(t *testing.T) {
		t.Parallel()

		ts, calls, _ := newIdentityService(t, http.StatusOK, `{"status":200}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(ts.URL).Verify(ctx, auth.NewCredential(testToken))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("context.Canceledが返るべきだが %v が返った", err)
		}
		if calls.Load() != 0 {
			t.Errorf("呼び出し回数 = %d, want 0", calls.Load())
		}
	})

	t.Run("空のトークンでは呼び出しを行わないこと", func(t *testing.T) {
		t.Parallel()

		ts, calls, _ := newIdentityService(t, http.StatusOK, `{}`)

		_, err := New(ts.URL).Verify(context.Background(), auth.NewCredential(""))
		if !errors.Is(err, auth.ErrCredentialAbsent) {
			t.Fatalf("CredentialAbsentが返るべきだが %v が返った", err)
		}
		if calls.Load() != 0 {
			t.Errorf("呼び出し回数 = %d, want 0", calls.Load())
		}
	})
}

// TestClient_Verify_DoesNotLogToken はトークンがログに出力されないことを検証する。
func TestClient_Verify_DoesNotLogToken(t *testing.T) {
	t.Parallel()

	ts, _, _ := newIdentityService(t, http.StatusOK,
		`{"status":403,"code":"FORBIDDEN","message":"denied","data":null}`)

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).Level(zerolog.TraceLevel).WithContext(context.Background())

	_, _ = New(ts.URL).Verify(ctx, auth.NewCredential(testToken))
	if buf.Len() == 0 {
		t.Fatal("デバッグログが出力されていない")
	}
	if strings.Contains(buf.String(), testToken) {
		t.Errorf("ログにトークンが含まれている: %s", buf.String())
	}
}

// TestParseResponseShape は設定値の変換を検証する。
func TestParseResponseShape(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"envelope", "bare"} {
		if _, err := ParseResponseShape(s); err != nil {
			t.Errorf("ParseResponseShape(%q)でエラーが発生: %v", s, err)
		}
	}
	if _, err := ParseResponseShape("auto"); err == nil {
		t.Error("ParseResponseShape(\"auto\")がエラーを返すべき")
	}
}
