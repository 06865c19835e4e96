package pgtool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/process"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Run(ctx context.Context, cmd process.Command) process.Result {
	args := m.Called(ctx, cmd)
	return args.Get(0).(process.Result)
}

var (
	_ DumpEngine    = (*Postgres)(nil)
	_ RestoreEngine = (*Postgres)(nil)
)

func TestPostgres_DumpCommand(t *testing.T) {
	p := NewPostgres(&mockExecutor{}, "postgres://app:pw@db/app?schema=tenant", "", "")

	cmd, err := p.DumpCommand("/b/db/db.dump")
	require.NoError(t, err)

	assert.Equal(t, "pg_dump", cmd.Bin)
	assert.Equal(t, []string{
		"-Fc", "--no-owner", "--no-privileges",
		"--schema", "tenant",
		"--file", "/b/db/db.dump",
		"postgres://app:pw@db/app",
	}, cmd.Args)
	assert.Equal(t, model.EnginePostgres, p.Engine())
}

func TestPostgres_DumpCommandWithoutSchema(t *testing.T) {
	p := NewPostgres(&mockExecutor{}, "postgres://db/app", "/opt/pg/bin/pg_dump", "")

	cmd, err := p.DumpCommand("/b/db.dump")
	require.NoError(t, err)

	assert.Equal(t, "/opt/pg/bin/pg_dump", cmd.Bin)
	assert.NotContains(t, cmd.Args, "--schema")
}

func TestPostgres_DumpCommandExcludesStateSchema(t *testing.T) {
	p := NewPostgres(&mockExecutor{}, "postgres://db/app", "", "").ExcludeSchema("backupd")

	cmd, err := p.DumpCommand("/b/db.dump")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-Fc", "--no-owner", "--no-privileges",
		"--exclude-schema", "backupd",
		"--file", "/b/db.dump",
		"postgres://db/app",
	}, cmd.Args)

	// An explicit schema selector already leaves the state schema out.
	p = NewPostgres(&mockExecutor{}, "postgres://db/app?schema=tenant", "", "").ExcludeSchema("backupd")
	cmd, err = p.DumpCommand("/b/db.dump")
	require.NoError(t, err)
	assert.NotContains(t, cmd.Args, "--exclude-schema")
}

func TestPostgres_RestoreCommand(t *testing.T) {
	p := NewPostgres(&mockExecutor{}, "postgres://app:pw@db/app?schema=tenant", "", "/opt/pg/bin/pg_restore")

	cmd, err := p.RestoreCommand("/b/db/db.dump")
	require.NoError(t, err)

	assert.Equal(t, "/opt/pg/bin/pg_restore", cmd.Bin)
	assert.Equal(t, []string{
		"--clean", "--if-exists", "--no-owner", "--no-privileges",
		"--dbname", "postgres://app:pw@db/app",
		"/b/db/db.dump",
	}, cmd.Args)
}

func TestPostgres_MissingURL(t *testing.T) {
	exec := &mockExecutor{}
	p := NewPostgres(exec, "", "", "")
	ctx := context.Background()

	info, res, err := p.Dump(ctx, "/b/db.dump")
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
	assert.Equal(t, "pg_dump", info.Bin)
	assert.NotNil(t, info.Args)
	assert.Equal(t, process.Result{}, res)

	_, _, err = p.Restore(ctx, "/b/db.dump")
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)

	exec.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestPostgres_DumpRunsAndRedacts(t *testing.T) {
	exec := &mockExecutor{}
	p := NewPostgres(exec, "postgres://app:s3cret@db/app", "", "")
	ctx := context.Background()

	want := process.Result{Code: 0, Stdout: "", Stderr: "", DurationMs: 12}
	exec.On("Run", ctx, mock.MatchedBy(func(c process.Command) bool {
		return c.Bin == "pg_dump" && c.Args[len(c.Args)-1] == "postgres://app:s3cret@db/app"
	})).Return(want)

	info, res, err := p.Dump(ctx, "/b/db.dump")
	require.NoError(t, err)
	assert.Equal(t, want, res)
	assert.Equal(t, "postgres://app:xxxxx@db/app", info.Args[len(info.Args)-1])
	exec.AssertExpectations(t)
}

func TestPostgres_DumpRedactsKeywordDSN(t *testing.T) {
	exec := &mockExecutor{}
	dsn := "host=db user=app password=s3cret dbname=app"
	p := NewPostgres(exec, dsn, "", "")
	ctx := context.Background()

	exec.On("Run", ctx, mock.MatchedBy(func(c process.Command) bool {
		return c.Args[len(c.Args)-1] == dsn
	})).Return(process.Result{})

	info, _, err := p.Dump(ctx, "/b/db.dump")
	require.NoError(t, err)
	assert.Equal(t, "host=db user=app password=xxxxx dbname=app", info.Args[len(info.Args)-1])
	for _, a := range info.Args {
		assert.NotContains(t, a, "s3cret")
	}
	exec.AssertExpectations(t)
}

func TestPostgres_RestoreReportsFailure(t *testing.T) {
	exec := &mockExecutor{}
	p := NewPostgres(exec, "postgres://db/app", "", "")
	ctx := context.Background()

	exec.On("Run", ctx, mock.AnythingOfType("process.Command")).Return(process.Result{Code: 1, Stderr: "relation missing"})

	_, res, err := p.Restore(ctx, "/b/db.dump")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, "relation missing", res.Stderr)
}
