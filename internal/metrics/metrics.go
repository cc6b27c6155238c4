package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tutor"

var (
	LessonsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "lessons_created_total", Help: "Lessons booked",
	})
	SchedulingConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "scheduling_conflicts_total", Help: "Rejected bookings by conflicting side",
	}, []string{"side"})
	LessonTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "lesson_transitions_total", Help: "Lesson state transitions",
	}, []string{"transition", "outcome"})
	ReportExports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "report_exports_total", Help: "Generated report documents",
	}, []string{"format"})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "notifications_total", Help: "Outgoing notifications",
	}, []string{"channel", "result"})
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "bot_updates_total", Help: "Processed telegram updates",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "job_runs_total", Help: "Total background job runs",
	}, []string{"job"})
	JobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "job_errors_total", Help: "Total background job errors",
	}, []string{"job"})
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "job_duration_seconds", Help: "Background job duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(
		LessonsCreated,
		SchedulingConflicts,
		LessonTransitions,
		ReportExports,
		Notifications,
		BotUpdates,
		DBPing,
		JobRuns,
		JobErrors,
		JobDuration,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// NotificationResult учитывает отправку уведомления по каналу
func NotificationResult(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Notifications.WithLabelValues(channel, result).Inc()
}
