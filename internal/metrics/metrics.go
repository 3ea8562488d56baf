// Package metrics объявляет метрики Prometheus сервиса прогресса.
// Метрики регистрируются в глобальном реестре и отдаются на /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты операций для меток.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultPassed   = "passed"
	ResultFailed   = "failed"
	ResultCooldown = "cooldown"
)

var (
	progressUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_progress_updates_total",
		Help: "Progress updates by kind (training, legacy, exam) and result",
	}, []string{"kind", "result"})

	staleWriteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_progress_stale_write_retries_total",
		Help: "Read-modify-write retries caused by concurrent changes of the same record",
	}, []string{"kind"})

	examAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_progress_exam_attempts_total",
		Help: "Exam submissions by outcome",
	}, []string{"course", "result"})

	courseCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_progress_course_completions_total",
		Help: "Courses completed for the first time",
	}, []string{"course"})

	eventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_progress_event_publish_failures_total",
		Help: "Course completion events that could not be published",
	})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_progress_logins_total",
		Help: "Serial logins by result and number of records sharing the serial",
	}, []string{"result", "duplicates"})
)

// ProgressUpdate учитывает обновление прогресса вида kind.
func ProgressUpdate(kind, result string) {
	progressUpdates.WithLabelValues(kind, result).Inc()
}

// StaleWriteRetry учитывает повтор чтения-записи после конфликта версий.
func StaleWriteRetry(kind string) {
	staleWriteRetries.WithLabelValues(kind).Inc()
}

// ExamAttempt учитывает попытку экзамена по курсу.
func ExamAttempt(courseID int, result string) {
	examAttempts.WithLabelValues(strconv.Itoa(courseID), result).Inc()
}

// CourseCompleted учитывает первое завершение курса.
func CourseCompleted(courseID int) {
	courseCompletions.WithLabelValues(strconv.Itoa(courseID)).Inc()
}

// EventPublishFailed учитывает неотправленное событие.
func EventPublishFailed() {
	eventPublishFailures.Inc()
}

// Login учитывает попытку входа. candidates > 1 означает дубли кода.
func Login(result string, candidates int) {
	duplicates := "false"
	if candidates > 1 {
		duplicates = "true"
	}
	logins.WithLabelValues(result, duplicates).Inc()
}
