package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// maxAuditBody bounds how much of a request body is held for the audit entry.
const maxAuditBody = 64 << 10

// AuditDB is the subset of pgxpool.Pool the audit writer needs.
type AuditDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AuditLogger records every mutating admin request. Entries always go to the
// log; with a database they are also written to audit_logs asynchronously.
type AuditLogger struct {
	db     AuditDB
	logger zerolog.Logger
	ch     chan auditEntry
	done   chan struct{}
}

type auditEntry struct {
	APIKeyID   *string
	Method     string
	Path       string
	Action     string
	BackupID   *string
	StatusCode int
}

// NewAuditLogger starts the writer. db may be nil.
func NewAuditLogger(db AuditDB, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		db:     db,
		logger: logger.With().Str("component", "audit").Logger(),
		ch:     make(chan auditEntry, 1024),
		done:   make(chan struct{}),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	defer close(al.done)
	for entry := range al.ch {
		ev := al.logger.Info().
			Str("method", entry.Method).
			Str("path", entry.Path).
			Str("action", entry.Action).
			Int("status", entry.StatusCode)
		if entry.APIKeyID != nil {
			ev = ev.Str("api_key_id", *entry.APIKeyID)
		}
		if entry.BackupID != nil {
			ev = ev.Str("backup_id", *entry.BackupID)
		}
		ev.Msg("admin action")

		if al.db == nil {
			continue
		}
		_, err := al.db.Exec(
			// use context.Background since this is async
			context.Background(),
			`INSERT INTO audit_logs (api_key_id, method, path, action, backup_id, status_code, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())`,
			entry.APIKeyID, entry.Method, entry.Path, entry.Action, entry.BackupID, entry.StatusCode,
		)
		if err != nil {
			al.logger.Error().Err(err).Msg("failed to write audit log")
		}
	}
}

// Close flushes pending entries and stops the writer.
func (al *AuditLogger) Close() {
	close(al.ch)
	<-al.done
}

// Middleware returns a chi middleware that audits mutating API requests.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(io.LimitReader(r.Body, maxAuditBody))
			// The handler still sees the whole body and enforces its own limit.
			r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(bodyBytes), r.Body), Closer: r.Body}
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		var apiKeyID *string
		if id, ok := r.Context().Value(APIKeyIDKey).(string); ok {
			apiKeyID = &id
		}

		select {
		case al.ch <- auditEntry{
			APIKeyID:   apiKeyID,
			Method:     r.Method,
			Path:       r.URL.Path,
			Action:     actionFor(r.URL.Path),
			BackupID:   backupIDFromBody(bodyBytes),
			StatusCode: sw.status,
		}:
		default:
			al.logger.Warn().Msg("audit log buffer full, dropping entry")
		}
	})
}

type replayBody struct {
	io.Reader
	io.Closer
}

// actionFor names the admin action from the request path.
func actionFor(path string) string {
	path = strings.TrimSuffix(path, "/")
	switch {
	case strings.HasSuffix(path, "/backups/restore"):
		return "backup.restore"
	case strings.HasSuffix(path, "/backups"):
		return "backup.create"
	}
	return "unknown"
}

// backupIDFromBody picks backupId out of a JSON body. Only the identifier is
// kept; confirmations and other fields are never stored.
func backupIDFromBody(body []byte) *string {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	var data struct {
		BackupID string `json:"backupId"`
	}
	if err := json.Unmarshal(body, &data); err != nil || data.BackupID == "" {
		return nil
	}
	return &data.BackupID
}
