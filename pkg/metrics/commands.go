package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommandMetrics records ingress and consumer outcomes per domain command.
type CommandMetrics struct {
	commands *prometheus.CounterVec
	messages *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCommandMetrics registers the command metrics on reg. A nil reg yields a no-op recorder.
func NewCommandMetrics(reg prometheus.Registerer) *CommandMetrics {
	if reg == nil {
		return &CommandMetrics{}
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workbook_commands_total",
		Help: "Commands received by the ingress, by response status.",
	}, []string{"command", "status"})
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workbook_messages_total",
		Help: "Command messages handled by the worker, by outcome.",
	}, []string{"command", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workbook_message_duration_seconds",
		Help:    "Time spent handling one command message.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	reg.MustRegister(commands, messages, duration)
	return &CommandMetrics{
		commands: commands,
		messages: messages,
		duration: duration,
	}
}

// IncCommand counts one ingress response.
func (m *CommandMetrics) IncCommand(command, status string) {
	if m == nil || m.commands == nil {
		return
	}
	m.commands.WithLabelValues(normalizeLabel(command), normalizeLabel(status)).Inc()
}

// ObserveMessage counts one handled message and its duration.
func (m *CommandMetrics) ObserveMessage(command, outcome string, took time.Duration) {
	if m == nil || m.messages == nil {
		return
	}
	command = normalizeLabel(command)
	m.messages.WithLabelValues(command, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(command).Observe(took.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
