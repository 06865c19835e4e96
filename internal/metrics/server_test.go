package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	srv := NewServer(":0")
	ObserveBackup("", time.Second)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "backupd_backups_total")
}

func TestRegisterPgxPoolMetrics(t *testing.T) {
	// pgxpool connects lazily, so no server is needed.
	pool, err := pgxpool.New(context.Background(), "postgres://backupd@127.0.0.1:1/backupd?pool_max_conns=3")
	require.NoError(t, err)
	defer pool.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPgxPoolMetrics(reg, pool))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "backupd_state_db_max_conns" {
			assert.Equal(t, float64(3), f.GetMetric()[0].GetGauge().GetValue())
		}
	}

	assert.Error(t, RegisterPgxPoolMetrics(reg, pool), "duplicate registration is rejected")
}
