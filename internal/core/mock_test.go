package core

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/backupd/internal/process"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

// newEmptyMockRows returns a mockRows that yields zero rows.
func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- Mock Executor ----------

// spyExecutor records every command and answers with a canned result. When
// writeFile is set, the value following "--file" is created to mimic pg_dump.
type spyExecutor struct {
	calls     []process.Command
	result    process.Result
	writeFile []byte
	onRun     func(cmd process.Command)

	// ctxErrs holds ctx.Err() observed after onRun returned, per call.
	ctxErrs []error
}

func (e *spyExecutor) Run(ctx context.Context, cmd process.Command) process.Result {
	e.calls = append(e.calls, cmd)
	if e.onRun != nil {
		e.onRun(cmd)
	}
	e.ctxErrs = append(e.ctxErrs, ctx.Err())
	if e.writeFile != nil {
		for i, a := range cmd.Args {
			if a == "--file" && i+1 < len(cmd.Args) {
				_ = os.WriteFile(cmd.Args[i+1], e.writeFile, 0o600)
			}
		}
	}
	return e.result
}

// ---------- Mock Locker ----------

// mockLocker implements lock.Locker.
type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) TryAcquire(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockLocker) Held(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// heldLocker reports a lock held by someone else.
type heldLocker struct {
	acquireCalls atomic.Int32
}

func (l *heldLocker) TryAcquire(context.Context) (bool, error) {
	l.acquireCalls.Add(1)
	return false, nil
}
func (l *heldLocker) Release(context.Context) error      { return nil }
func (l *heldLocker) Held(context.Context) (bool, error) { return true, nil }
