package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const writeTimeoutMargin = 15 * time.Minute

// DataDir is a named filesystem tree subject to backup and restore.
type DataDir struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type Config struct {
	ServiceName string

	// DatabaseURL is the datastore that backups dump and restores replay into.
	DatabaseURL string

	// StateDatabaseURL holds the service's own tables (api_keys,
	// restore_leases, audit_logs). Defaults to DatabaseURL; the tables then
	// live in their own schema, which dumps exclude.
	StateDatabaseURL string

	HTTPListenAddr string
	MetricsAddr    string
	LogLevel       string
	AppVersion     string

	// AppRoot is the directory the host application runs from. Relative
	// defaults for the data directories and the env file resolve against it.
	AppRoot      string
	DataRoot     string
	DataDirs     []DataDir
	DataDirsFile string
	BackupRoot   string
	EnvFile      string

	PgDumpBin      string
	PgRestoreBin   string
	ProcessTimeout time.Duration

	// RestoreLockBackend selects the restore lock: "memory" (per-process) or
	// "postgres" (lease row shared by every replica).
	RestoreLockBackend    string
	RestoreLeaseTTL       time.Duration
	RemoveOldAfterRestore bool

	// APIKeyStore selects the authenticator: "static" uses AdminAPIKeys,
	// "postgres" looks keys up in the api_keys table.
	APIKeyStore  string
	AdminAPIKeys []string

	// Optional HTTPS for the API server. TLSClientCA turns on mutual TLS.
	TLSCert     string
	TLSKey      string
	TLSClientCA string
}

func Load() (*Config, error) {
	appRoot := getEnv("APP_ROOT", "")
	if appRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		appRoot = wd
	}

	processTimeout, err := getDuration("PROCESS_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	leaseTTL, err := getDuration("RESTORE_LEASE_TTL", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	removeOld, err := getBool("REMOVE_OLD_AFTER_RESTORE", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServiceName:           getEnv("SERVICE_NAME", "backupd"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		AppVersion:            getEnv("APP_VERSION", ""),
		AppRoot:               appRoot,
		DataRoot:              getEnv("DATA_DIR", filepath.Join(appRoot, "..", "data")),
		DataDirsFile:          getEnv("DATA_DIRS_FILE", ""),
		BackupRoot:            getEnv("BACKUP_ROOT_DIR", defaultBackupRoot()),
		EnvFile:               getEnv("ENV_FILE", filepath.Join(appRoot, ".env")),
		PgDumpBin:             getEnv("PG_DUMP_BIN", "pg_dump"),
		PgRestoreBin:          getEnv("PG_RESTORE_BIN", "pg_restore"),
		ProcessTimeout:        processTimeout,
		RestoreLockBackend:    getEnv("RESTORE_LOCK_BACKEND", "memory"),
		RestoreLeaseTTL:       leaseTTL,
		RemoveOldAfterRestore: removeOld,
		APIKeyStore:           getEnv("API_KEY_STORE", "static"),
		AdminAPIKeys:          splitList(getEnv("ADMIN_API_KEYS", "")),
		TLSCert:               getEnv("TLS_CERT", ""),
		TLSKey:                getEnv("TLS_KEY", ""),
		TLSClientCA:           getEnv("TLS_CLIENT_CA", ""),
	}

	cfg.StateDatabaseURL = getEnv("STATE_DATABASE_URL", cfg.DatabaseURL)

	if cfg.DataDirsFile != "" {
		dirs, err := LoadDataDirs(cfg.DataDirsFile)
		if err != nil {
			return nil, err
		}
		cfg.DataDirs = dirs
	} else {
		cfg.DataDirs = []DataDir{
			{Name: "globalia", Path: filepath.Join(cfg.DataRoot, "globalia")},
			{Name: "uploads", Path: filepath.Join(cfg.DataRoot, "uploads")},
		}
	}

	return cfg, nil
}

// Validate checks that the config carries everything the named service needs.
func (c *Config) Validate(service string) error {
	if c.BackupRoot == "" {
		return fmt.Errorf("%s: BACKUP_ROOT_DIR resolved to an empty path", service)
	}
	switch c.RestoreLockBackend {
	case "memory":
	case "postgres":
		if c.StateDatabaseURL == "" {
			return fmt.Errorf("%s: RESTORE_LOCK_BACKEND=postgres requires DATABASE_URL or STATE_DATABASE_URL", service)
		}
	default:
		return fmt.Errorf("%s: unknown RESTORE_LOCK_BACKEND %q", service, c.RestoreLockBackend)
	}
	if service == "backup-api" {
		switch c.APIKeyStore {
		case "static":
			if len(c.AdminAPIKeys) == 0 {
				return fmt.Errorf("%s: API_KEY_STORE=static requires ADMIN_API_KEYS", service)
			}
		case "postgres":
			if c.StateDatabaseURL == "" {
				return fmt.Errorf("%s: API_KEY_STORE=postgres requires DATABASE_URL or STATE_DATABASE_URL", service)
			}
		default:
			return fmt.Errorf("%s: unknown API_KEY_STORE %q", service, c.APIKeyStore)
		}
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("%s: TLS_CERT and TLS_KEY must both be set", service)
	}
	if c.TLSClientCA != "" && c.TLSCert == "" {
		return fmt.Errorf("%s: TLS_CLIENT_CA requires TLS_CERT and TLS_KEY", service)
	}
	seen := map[string]bool{}
	for _, d := range c.DataDirs {
		if d.Name == "" || d.Path == "" {
			return fmt.Errorf("%s: data directory entries need both name and path", service)
		}
		if d.Name == "env" || strings.ContainsAny(d.Name, `/\`) || d.Name == "." || d.Name == ".." {
			return fmt.Errorf("%s: invalid data directory name %q", service, d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("%s: duplicate data directory name %q", service, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// SharedStateDB reports whether the service tables live in the backed-up database.
func (c *Config) SharedStateDB() bool {
	return c.StateDatabaseURL != "" && c.StateDatabaseURL == c.DatabaseURL
}

// HTTPWriteTimeout bounds a whole admin response. Backups and restores run
// inside the request, so it follows ProcessTimeout plus a margin for the
// directory copies; zero when the process deadline is disabled.
func (c *Config) HTTPWriteTimeout() time.Duration {
	if c.ProcessTimeout <= 0 {
		return 0
	}
	return c.ProcessTimeout + writeTimeoutMargin
}

type dataDirsFile struct {
	DataDirs []DataDir `yaml:"data_dirs"`
}

// LoadDataDirs reads a YAML file of the form
//
//	data_dirs:
//	  - name: globalia
//	    path: /srv/app/data/globalia
//
// Relative paths resolve against the file's directory.
func LoadDataDirs(path string) ([]DataDir, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data dirs file: %w", err)
	}

	var f dataDirsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse data dirs file: %w", err)
	}

	base := filepath.Dir(path)
	for i, d := range f.DataDirs {
		if d.Path != "" && !filepath.IsAbs(d.Path) {
			f.DataDirs[i].Path = filepath.Join(base, d.Path)
		}
	}
	return f.DataDirs, nil
}

func defaultBackupRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "WEBAPP_BACKUPS")
	}
	return filepath.Join(home, "Desktop", "WEBAPP_BACKUPS")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
