package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), want: SchedulerJobReasonDeadlineExceeded},
		{name: "canceled", err: context.Canceled, want: SchedulerJobReasonCanceled},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "other_db", err: &pgconn.PgError{Code: "42P01"}, want: SchedulerJobReasonDB},
		{name: "source", err: errors.New("pricing source returned 502"), want: SchedulerJobReasonSource},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetrics(registry, Config{ServiceName: "autobazaar", Environment: "test"})

	m.IncJobRun("catalog_refresh")
	m.IncJobError("catalog_refresh", context.DeadlineExceeded)
	m.IncCatalogRefreshed("live")
	m.IncCatalogRefreshed("live")
	m.IncCatalogSkipped("catalog_refresh")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("catalog_refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobTimeouts.WithLabelValues("catalog_refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("catalog_refresh", SchedulerJobReasonDeadlineExceeded)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.catalogsRefreshed.WithLabelValues("live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogsSkipped.WithLabelValues("catalog_refresh")))
}
