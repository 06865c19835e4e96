package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backupd_backups_total",
			Help: "Backup attempts by result code",
		},
		[]string{"code"},
	)

	backupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backupd_backup_duration_seconds",
			Help:    "Wall-clock duration of backup attempts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	restoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backupd_restores_total",
			Help: "Restore attempts by result code",
		},
		[]string{"code"},
	)

	restoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backupd_restore_duration_seconds",
			Help:    "Wall-clock duration of restore attempts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	restoreInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backupd_restore_in_progress",
			Help: "1 while this process holds the restore lock",
		},
	)
)

// OKCode labels successful attempts.
const OKCode = "OK"

func codeLabel(code string) string {
	if code == "" {
		return OKCode
	}
	return code
}

// ObserveBackup records one backup attempt. An empty code means success.
func ObserveBackup(code string, d time.Duration) {
	backupsTotal.WithLabelValues(codeLabel(code)).Inc()
	backupDuration.Observe(d.Seconds())
}

// ObserveRestore records one restore attempt. An empty code means success.
func ObserveRestore(code string, d time.Duration) {
	restoresTotal.WithLabelValues(codeLabel(code)).Inc()
	restoreDuration.Observe(d.Seconds())
}

func SetRestoreInProgress(held bool) {
	if held {
		restoreInProgress.Set(1)
		return
	}
	restoreInProgress.Set(0)
}
