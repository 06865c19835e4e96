package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/backupd/internal/platform"
)

// DB is the subset of pgxpool.Pool the lease needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DefaultLeaseName is the row shared by every replica guarding restores.
const DefaultLeaseName = "restore"

// PostgresLease is a Locker backed by a row in restore_leases. The row
// expires after ttl so a crashed holder cannot block restores forever.
type PostgresLease struct {
	db     DB
	name   string
	holder string
	ttl    time.Duration
}

// NewPostgresLease creates a lease handle. Each process gets a distinct holder.
func NewPostgresLease(db DB, name string, ttl time.Duration) *PostgresLease {
	host, _ := os.Hostname()
	return &PostgresLease{
		db:     db,
		name:   name,
		holder: fmt.Sprintf("%s/%d/%s", host, os.Getpid(), platform.NewID()),
		ttl:    ttl,
	}
}

// Holder identifies this process in the lease row.
func (l *PostgresLease) Holder() string {
	return l.holder
}

func (l *PostgresLease) TryAcquire(ctx context.Context) (bool, error) {
	var holder string
	err := l.db.QueryRow(ctx,
		`INSERT INTO restore_leases (name, holder, acquired_at, expires_at)
		 VALUES ($1, $2, now(), now() + $3 * interval '1 second')
		 ON CONFLICT (name) DO UPDATE
		   SET holder = EXCLUDED.holder, acquired_at = EXCLUDED.acquired_at, expires_at = EXCLUDED.expires_at
		   WHERE restore_leases.expires_at < now()
		 RETURNING holder`,
		l.name, l.holder, int64(l.ttl.Seconds()),
	).Scan(&holder)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.name, err)
	}
	return holder == l.holder, nil
}

func (l *PostgresLease) Release(ctx context.Context) error {
	_, err := l.db.Exec(ctx,
		`DELETE FROM restore_leases WHERE name = $1 AND holder = $2`,
		l.name, l.holder,
	)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", l.name, err)
	}
	return nil
}

func (l *PostgresLease) Held(ctx context.Context) (bool, error) {
	var held bool
	err := l.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM restore_leases WHERE name = $1 AND expires_at > now())`,
		l.name,
	).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("check lease %s: %w", l.name, err)
	}
	return held, nil
}
