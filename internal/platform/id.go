package platform

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const backupSuffixLength = 8

// BackupIDLayout is the fixed-width timestamp prefix of every backup ID.
// Zero padding keeps lexical order equal to chronological order.
const BackupIDLayout = "2006-01-02_15-04-05"

func NewID() string {
	return uuid.New().String()
}

// NewBackupID returns "<UTC timestamp>__<random suffix>". The suffix keeps IDs
// unique when several backups start within the same second.
func NewBackupID(now time.Time) string {
	return now.UTC().Format(BackupIDLayout) + "__" + randomSuffix(backupSuffixLength)
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return string(b)
}
