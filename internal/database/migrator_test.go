package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Ordered(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)

	assert.Equal(t, []string{"001_accession_submissions.sql", "002_accession_events.sql"}, names)
}

func TestMigrations_CreateTablesUsedByClients(t *testing.T) {
	submissions, err := migrationsFS.ReadFile("migrations/001_accession_submissions.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(submissions), "created_sample_ids TEXT[]"))

	events, err := migrationsFS.ReadFile("migrations/002_accession_events.sql")
	require.NoError(t, err)
	assert.Contains(t, string(events), "CREATE TABLE IF NOT EXISTS accession_events")
}
