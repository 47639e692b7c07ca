package mcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dimetrics_mcp_tool_calls_total",
			Help: "Total MCP tool calls by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dimetrics_mcp_tool_call_duration_seconds",
			Help:    "Duration of MCP tool calls including the backend round trip.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)
)

func observeToolCall(tool string, res Result, d time.Duration) {
	outcome := "success"
	if !res.Success {
		outcome = res.ErrorKind
	}
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}
