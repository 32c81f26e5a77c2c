package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/internal/config"
)

func TestNew_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(config.EnvProd, &buf)

	log.Info("user registered", "user_id", "u-1", Err(errors.New("boom")))
	log.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user registered", entry["msg"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_LocalWritesTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(config.EnvLocal, &buf)

	log.Debug("token rejected")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "token rejected")
}

func TestErr_Nil(t *testing.T) {
	attr := Err(nil)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "<nil>", attr.Value.String())
}
