package testutil

import (
	"testing"

	"github.com/Abhijit-Sethi/humane-ai-rater/util/cliutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fresh in-memory sqlite database, private to the calling test.
func TestDB(t *testing.T) *gorm.DB {
	db, err := cliutil.SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqldb, err := db.DB(); err == nil {
			sqldb.Close()
		}
	})
	return db
}
