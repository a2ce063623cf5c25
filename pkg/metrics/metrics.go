package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		TurnTotal, TurnDuration,
		ToolCallsTotal, ToolDuration,
		PlanStrategyTotal, ExecutorStepsTotal,
		OracleWait, SessionsTrimmedTotal,
	)
}

// TurnTotal counts finished turns by route and outcome.
var TurnTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentwardan_turns_total",
		Help: "Agent turns processed",
	},
	[]string{"route", "outcome"}, // executor | direct ; ok | error
)

// TurnDuration 单轮对话耗时（秒）
var TurnDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agentwardan_turn_duration_seconds",
		Help:    "Agent turn latency in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

// ToolCallsTotal 工具调用次数
var ToolCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentwardan_tool_calls_total",
		Help: "Tool invocations",
	},
	[]string{"tool", "outcome"}, // ok | envelope_error | error
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agentwardan_tool_duration_seconds",
		Help:    "Tool invocation latency in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// PlanStrategyTotal counts which parse strategy produced the plan.
var PlanStrategyTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentwardan_plan_strategy_total",
		Help: "Plans produced per parse strategy",
	},
	[]string{"strategy"},
)

// ExecutorStepsTotal 执行器步骤数（按意图与状态）
var ExecutorStepsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentwardan_executor_steps_total",
		Help: "Executor steps by intent and status",
	},
	[]string{"intent", "status"},
)

// OracleWait is time spent waiting on the oracle rate limiter.
var OracleWait = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "agentwardan_oracle_wait_seconds",
		Help:    "Time spent waiting for oracle rate limit slots",
		Buckets: prometheus.DefBuckets,
	},
)

// SessionsTrimmedTotal 会话裁剪次数
var SessionsTrimmedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "agentwardan_sessions_trimmed_total",
		Help: "Transcript trims performed",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
