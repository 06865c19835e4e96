package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewID_ReturnsValidUUIDString(t *testing.T) {
	id := NewID()
	assert.NotEmpty(t, id)
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
}

func TestNewID_ReturnsUniqueValues(t *testing.T) {
	seen := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.False(t, seen[id], "duplicate ID generated: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func TestNewBackupID_Format(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id := NewBackupID(now)
	assert.Regexp(t, `^2024-01-02_03-04-05__[a-z0-9]{8}$`, id)
}

func TestNewBackupID_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 6, 1, 1, 30, 0, 0, loc)
	assert.Regexp(t, `^2024-05-31_23-30-00__`, NewBackupID(now))
}

func TestNewBackupID_SameTickIsUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		id := NewBackupID(now)
		assert.False(t, seen[id], "duplicate backup ID generated: %s", id)
		seen[id] = true
	}
}

func TestNewBackupID_SortsChronologically(t *testing.T) {
	earlier := NewBackupID(time.Date(2024, 9, 30, 23, 59, 59, 0, time.UTC))
	later := NewBackupID(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, earlier, later)
}
