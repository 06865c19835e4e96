package model

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// EnginePostgres identifies snapshots whose db/db.dump is a pg_dump custom-format archive.
const EnginePostgres = "postgres"

// Manifest is the permanent audit record of one backup attempt, written last
// into <root>/<backupId>/manifest.json.
type Manifest struct {
	BackupID    string       `json:"backupId"`
	BackupRoot  string       `json:"backupRoot"`
	CreatedAt   time.Time    `json:"createdAt"`
	CreatedBy   string       `json:"createdBy"`
	AppVersion  *string      `json:"appVersion"`
	IncludesEnv bool         `json:"includesEnv"`
	Engine      string       `json:"engine"`
	Sizes       Sizes        `json:"sizes"`
	MissingDirs []string     `json:"missingDirs"`
	Env         *EnvInfo     `json:"env"`
	DumpCommand CommandInfo  `json:"dumpCommand"`
	Result      BackupResult `json:"result"`
	Logs        BackupLogs   `json:"logs"`
}

// Sizes holds byte counts of the dump and of every copied data directory.
// Directory sizes are serialized as "<name>Bytes" next to "dbDumpBytes".
type Sizes struct {
	DBDumpBytes int64
	Dirs        map[string]int64
}

func (s Sizes) MarshalJSON() ([]byte, error) {
	out := make(map[string]int64, len(s.Dirs)+1)
	for name, n := range s.Dirs {
		out[name+"Bytes"] = n
	}
	out["dbDumpBytes"] = s.DBDumpBytes
	return json.Marshal(out)
}

func (s *Sizes) UnmarshalJSON(data []byte) error {
	var in map[string]int64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.DBDumpBytes = in["dbDumpBytes"]
	s.Dirs = make(map[string]int64, len(in))
	for key, n := range in {
		if key == "dbDumpBytes" || !strings.HasSuffix(key, "Bytes") {
			continue
		}
		s.Dirs[strings.TrimSuffix(key, "Bytes")] = n
	}
	return nil
}

// EnvInfo locates the env file copies inside a snapshot. Either path is
// nil when that sub-step failed.
type EnvInfo struct {
	BackupPath *string `json:"backupPath"`
	SamplePath *string `json:"samplePath"`
}

// CommandInfo records the external command a backup ran, with secrets redacted.
type CommandInfo struct {
	Bin  string   `json:"bin"`
	Args []string `json:"args"`
}

type BackupResult struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// CommandLog is the summarized outcome of an external dump or restore run.
type CommandLog struct {
	Code       int    `json:"code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"durationMs"`
	TimedOut   bool   `json:"timedOut"`
}

// BackupLogs records the dump result and a per-directory status. FS is keyed by
// data directory name, plus "env" when the env file was requested.
type BackupLogs struct {
	DB *CommandLog       `json:"db"`
	FS map[string]string `json:"fs"`
}

// RestoreLogs records the restore tool result, per-directory status, and the
// path each live directory was moved aside to (nil when nothing was moved).
type RestoreLogs struct {
	DB      *CommandLog        `json:"db"`
	FS      map[string]string  `json:"fs"`
	Renames map[string]*string `json:"renames"`
}

// BackupListItem is one snapshot directory under the backup root. Manifest is
// nil when manifest.json is absent or unreadable.
type BackupListItem struct {
	BackupID string    `json:"backupId"`
	Manifest *Manifest `json:"manifest"`
}

type BackupList struct {
	Root  string           `json:"root"`
	Items []BackupListItem `json:"items"`
}
