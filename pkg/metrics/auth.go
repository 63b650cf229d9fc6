// Package metrics は認証ゲートのPrometheusメトリクスを提供する。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 検証結果のラベル値。
const (
	ResultSuccess  = "success"
	ResultCanceled = "canceled"
)

// Auth は認証ゲートの検証結果を記録するメトリクス。
type Auth struct {
	verifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewAuth はメトリクスを生成してregに登録する。
func NewAuth(reg prometheus.Registerer) (*Auth, error) {
	m := &Auth{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_verifications_total",
				Help: "Total number of credential verifications by verifier and result",
			},
			[]string{"verifier", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authgate_verification_duration_seconds",
				Help:    "Time spent verifying a credential",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"verifier"},
		),
	}
	for _, c := range []prometheus.Collector{m.verifications, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveVerification は1回の検証結果を記録する。
// resultには成功時はResultSuccess、失敗時はauth.Kindの文字列表現を渡す。
func (m *Auth) ObserveVerification(verifier, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(verifier, result).Inc()
	m.duration.WithLabelValues(verifier).Observe(elapsed.Seconds())
}

// ObserveRejection は検証を行わずに拒否した結果を記録する。
// 検証時間のヒストグラムには記録しない。
func (m *Auth) ObserveRejection(verifier, result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(verifier, result).Inc()
}
