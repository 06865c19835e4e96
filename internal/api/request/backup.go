package request

type CreateBackup struct {
	IncludeEnv bool `json:"includeEnv"`
}

// RestoreBackup carries the typed confirmation. Semantic checks happen in the
// restore orchestrator so error precedence stays in one place.
type RestoreBackup struct {
	BackupID    string `json:"backupId" validate:"max=255"`
	ConfirmText string `json:"confirmText" validate:"max=512"`
}
