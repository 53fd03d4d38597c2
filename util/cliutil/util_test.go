package cliutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupDatabase(t *testing.T) {
	assert := assert.New(t)

	db, err := SetupDatabase("sqlite://:memory:", 40)
	assert.NoError(err)
	sqldb, err := db.DB()
	assert.NoError(err)
	assert.Equal(1, sqldb.Stats().MaxOpenConnections)

	_, err = SetupDatabase("mysql://localhost/rater", 10)
	assert.Error(err)
}

func TestParseLevel(t *testing.T) {
	assert := assert.New(t)

	l, err := ParseLevel("WARN")
	assert.NoError(err)
	assert.Equal(slog.LevelWarn, l)

	l, err = ParseLevel("")
	assert.NoError(err)
	assert.Equal(slog.LevelInfo, l)

	_, err = ParseLevel("verbose")
	assert.Error(err)
}

func TestSetupSlog(t *testing.T) {
	assert := assert.New(t)
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger, err := SetupSlog(LogOptions{Writer: &buf, LogFormat: "JSON", LogLevel: "warn"})
	assert.NoError(err)
	logger.Info("dropped")
	slog.Warn("kept", "rating", "r1")

	var line map[string]any
	assert.NoError(json.Unmarshal(buf.Bytes(), &line))
	assert.Equal("kept", line["msg"])
	assert.Equal("r1", line["rating"])

	path := filepath.Join(t.TempDir(), "rater.log")
	logger, err = SetupSlog(LogOptions{Writer: &buf, LogPath: path, LogFormat: "text"})
	assert.NoError(err)
	logger.Info("to file")
	b, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Contains(string(b), "msg=\"to file\"")

	_, err = SetupSlog(LogOptions{LogFormat: "xml"})
	assert.Error(err)
	_, err = SetupSlog(LogOptions{LogLevel: "verbose"})
	assert.Error(err)
}
