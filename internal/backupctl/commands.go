// Package backupctl implements the backupctl command line: each subcommand
// maps to one admin API call and prints the JSON envelope it gets back.
package backupctl

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"

	"github.com/goccy/go-json"
)

const adminPrefix = "/api/v1/admin"

// Usage describes the subcommands.
const Usage = `Usage:
  backupctl [global flags] <command> [flags]

Commands:
  create [-include-env]               Take a snapshot
  list                                List snapshots, newest first
  show <backup-id>                    Print one snapshot's manifest
  restore -id <id> -confirm <text>    Restore a snapshot; text must be "RESTORE <id>"
  status                              Report whether a restore is running`

// Run executes one subcommand and returns the process exit code.
func Run(ctx context.Context, c *Client, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, Usage)
		return 2
	}

	var (
		resp *Response
		err  error
	)
	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		fs.SetOutput(stderr)
		includeEnv := fs.Bool("include-env", false, "Also copy the env file and a masked sample")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		resp, err = c.Post(ctx, adminPrefix+"/backups", map[string]any{"includeEnv": *includeEnv})

	case "list":
		resp, err = c.Get(ctx, adminPrefix+"/backups")

	case "show":
		if len(args) < 2 || args[1] == "" {
			fmt.Fprintln(stderr, "Usage: backupctl show <backup-id>")
			return 2
		}
		resp, err = c.Get(ctx, adminPrefix+"/backups/"+url.PathEscape(args[1]))

	case "restore":
		fs := flag.NewFlagSet("restore", flag.ContinueOnError)
		fs.SetOutput(stderr)
		id := fs.String("id", "", "Backup ID to restore (required)")
		confirm := fs.String("confirm", "", `Confirmation text, exactly "RESTORE <id>" (required)`)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		resp, err = c.Post(ctx, adminPrefix+"/backups/restore", map[string]any{
			"backupId":    *id,
			"confirmText": *confirm,
		})

	case "status":
		resp, err = c.Get(ctx, adminPrefix+"/backups/restore/status")

	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, Usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var out bytes.Buffer
	if err := json.Indent(&out, resp.Body, "", "  "); err != nil {
		out.Reset()
		out.Write(resp.Body)
	}
	fmt.Fprintln(stdout, out.String())

	if !resp.OK() {
		return 1
	}
	return 0
}
