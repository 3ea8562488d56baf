package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(examAttempts.WithLabelValues("3", ResultPassed))
	ExamAttempt(3, ResultPassed)
	assert.Equal(t, before+1, testutil.ToFloat64(examAttempts.WithLabelValues("3", ResultPassed)))

	before = testutil.ToFloat64(logins.WithLabelValues(ResultOK, "true"))
	Login(ResultOK, 2)
	assert.Equal(t, before+1, testutil.ToFloat64(logins.WithLabelValues(ResultOK, "true")))

	before = testutil.ToFloat64(logins.WithLabelValues(ResultOK, "false"))
	Login(ResultOK, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(logins.WithLabelValues(ResultOK, "false")))

	before = testutil.ToFloat64(eventPublishFailures)
	EventPublishFailed()
	assert.Equal(t, before+1, testutil.ToFloat64(eventPublishFailures))

	before = testutil.ToFloat64(courseCompletions.WithLabelValues("8"))
	CourseCompleted(8)
	assert.Equal(t, before+1, testutil.ToFloat64(courseCompletions.WithLabelValues("8")))

	before = testutil.ToFloat64(staleWriteRetries.WithLabelValues("training"))
	StaleWriteRetry("training")
	assert.Equal(t, before+1, testutil.ToFloat64(staleWriteRetries.WithLabelValues("training")))

	before = testutil.ToFloat64(progressUpdates.WithLabelValues("legacy", ResultOK))
	ProgressUpdate("legacy", ResultOK)
	assert.Equal(t, before+1, testutil.ToFloat64(progressUpdates.WithLabelValues("legacy", ResultOK)))
}
