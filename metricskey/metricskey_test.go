package metricskey_test

import (
	"testing"

	"github.com/effective-security/certreq/metricskey"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	names := map[string]bool{}
	for _, m := range metricskey.Metrics {
		assert.NotEmpty(t, m.Help)
		assert.NotEmpty(t, m.RequiredTags)
		assert.False(t, names[m.Name], "duplicate: %s", m.Name)
		names[m.Name] = true
	}
	assert.True(t, names["perf_request_parse"])
	assert.True(t, names["perf_profile_build"])
	assert.True(t, names["perf_enroll"])
}
