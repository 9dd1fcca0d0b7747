package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ffmpegInvocationsTotal) }

var ffmpegInvocationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ffmpeg_invocations_total",
		Help: "External tool invocations by pipeline stage and outcome.",
	},
	[]string{"stage", "outcome"}, // outcome: 'ok', 'error', 'timeout'
)

func IncFFmpeg(stage, outcome string) {
	ffmpegInvocationsTotal.WithLabelValues(norm(stage), norm(outcome)).Inc()
}
