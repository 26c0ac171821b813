package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production", "info")

	log.Error("store failed", errors.New("connection refused"), "player_id", "abc")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "store failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "abc", entry["player_id"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "development", "warn")

	log.Debug("hidden")
	log.Info("hidden too")
	assert.Empty(t, buf.String())

	log.Warn("shown", "k", 1)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=1")
}

func TestWith_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "development", "debug").With("component", "score")

	log.Info("submitted")
	assert.Contains(t, buf.String(), "component=score")
}

func TestFatal_Exits(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	log := &SlogLogger{logger: NewWithWriter(&buf, "development", "info").(*SlogLogger).logger, exit: func(c int) { code = c }}

	log.Fatal("boom", errors.New("bad"))
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "boom")
}
