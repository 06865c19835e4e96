// Package pgtool wraps the PostgreSQL client tools behind the dump and
// restore engine interfaces used by the backup orchestrators.
package pgtool

import (
	"context"
	"errors"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/process"
)

// ErrMissingDatabaseURL is returned when no connection string is configured.
var ErrMissingDatabaseURL = errors.New("MISSING_DATABASE_URL")

// DumpEngine writes a datastore dump to a file. The returned error is only
// set when the command could not be built; tool failures are reported in the
// Result.
type DumpEngine interface {
	Engine() string
	Dump(ctx context.Context, dest string) (model.CommandInfo, process.Result, error)
}

// RestoreEngine replays a dump produced by the matching DumpEngine.
type RestoreEngine interface {
	Restore(ctx context.Context, dumpPath string) (model.CommandInfo, process.Result, error)
}

// Postgres drives pg_dump and pg_restore.
type Postgres struct {
	exec          process.Executor
	url           string
	dumpBin       string
	restoreBin    string
	excludeSchema string
}

// NewPostgres creates an engine for the given connection string. Empty binary
// names fall back to the tools on PATH.
func NewPostgres(exec process.Executor, databaseURL, dumpBin, restoreBin string) *Postgres {
	if dumpBin == "" {
		dumpBin = "pg_dump"
	}
	if restoreBin == "" {
		restoreBin = "pg_restore"
	}
	return &Postgres{exec: exec, url: databaseURL, dumpBin: dumpBin, restoreBin: restoreBin}
}

// ExcludeSchema leaves schema out of every dump. Used when the service keeps
// its own tables in the database it backs up.
func (p *Postgres) ExcludeSchema(schema string) *Postgres {
	p.excludeSchema = schema
	return p
}

func (p *Postgres) Engine() string {
	return model.EnginePostgres
}

// DumpCommand builds the pg_dump invocation in custom format. A schema selector
// in the URL becomes an explicit --schema argument.
func (p *Postgres) DumpCommand(dest string) (process.Command, error) {
	if p.url == "" {
		return process.Command{}, ErrMissingDatabaseURL
	}
	clean, schema := NormalizeURL(p.url)
	args := []string{"-Fc", "--no-owner", "--no-privileges"}
	if schema != "" {
		args = append(args, "--schema", schema)
	} else if p.excludeSchema != "" {
		args = append(args, "--exclude-schema", p.excludeSchema)
	}
	args = append(args, "--file", dest, clean)
	return process.Command{Bin: p.dumpBin, Args: args}, nil
}

func (p *Postgres) Dump(ctx context.Context, dest string) (model.CommandInfo, process.Result, error) {
	cmd, err := p.DumpCommand(dest)
	if err != nil {
		return model.CommandInfo{Bin: p.dumpBin, Args: []string{}}, process.Result{}, err
	}
	return commandInfo(cmd), p.exec.Run(ctx, cmd), nil
}

// RestoreCommand builds the pg_restore invocation. --clean --if-exists makes
// a retry after a failed restore safe.
func (p *Postgres) RestoreCommand(dumpPath string) (process.Command, error) {
	if p.url == "" {
		return process.Command{}, ErrMissingDatabaseURL
	}
	clean, _ := NormalizeURL(p.url)
	return process.Command{
		Bin:  p.restoreBin,
		Args: []string{"--clean", "--if-exists", "--no-owner", "--no-privileges", "--dbname", clean, dumpPath},
	}, nil
}

func (p *Postgres) Restore(ctx context.Context, dumpPath string) (model.CommandInfo, process.Result, error) {
	cmd, err := p.RestoreCommand(dumpPath)
	if err != nil {
		return model.CommandInfo{Bin: p.restoreBin, Args: []string{}}, process.Result{}, err
	}
	return commandInfo(cmd), p.exec.Run(ctx, cmd), nil
}

func commandInfo(cmd process.Command) model.CommandInfo {
	return model.CommandInfo{Bin: cmd.Bin, Args: Redact(cmd.Args)}
}
