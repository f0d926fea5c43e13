package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()

	// Verify all metrics are non-nil (registered via promauto on package init).
	assert.NotNil(t, APICallsTotal)
	assert.NotNil(t, APIRetriesTotal)
	assert.NotNil(t, APIRequestDuration)
	assert.NotNil(t, QuotaDailyUsage)
	assert.NotNil(t, QuotaLimitHits)
	assert.NotNil(t, TokenRefreshesTotal)
	assert.NotNil(t, TokenRefreshFailuresTotal)
	assert.NotNil(t, CacheHitsTotal)
	assert.NotNil(t, CacheMissesTotal)
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, HealthzUp)
}
