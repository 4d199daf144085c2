package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы для label outcome.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeDegraded = "degraded"
)

// Направления передачи файлов.
const (
	DirectionDownload = "download"
	DirectionUpload   = "upload"
)

var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robots_invocations_total",
		Help: "Total robot invocations by robot and outcome",
	}, []string{"robot", "outcome"})

	platformCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "robots_platform_call_duration_seconds",
		Help:    "Duration of platform REST calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "outcome"})

	filesTransferred = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robots_files_transferred_total",
		Help: "Files downloaded from or uploaded to the platform",
	}, []string{"direction"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robots_callbacks_total",
		Help: "bizproc.event.send deliveries by outcome",
	}, []string{"outcome"})
)

// ObserveInvocation учитывает завершённый вызов робота.
func ObserveInvocation(robot, outcome string) {
	invocationsTotal.WithLabelValues(robot, outcome).Inc()
}

// ObservePlatformCall учитывает длительность вызова REST метода.
func ObservePlatformCall(method string, err error, elapsed time.Duration) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	platformCallDuration.WithLabelValues(method, outcome).Observe(elapsed.Seconds())
}

// ObserveFileTransfer учитывает скачанный или загруженный файл.
func ObserveFileTransfer(direction string) {
	filesTransferred.WithLabelValues(direction).Inc()
}

// ObserveCallback учитывает отправку результата бизнес-процессу.
func ObserveCallback(outcome string) {
	callbacksTotal.WithLabelValues(outcome).Inc()
}
