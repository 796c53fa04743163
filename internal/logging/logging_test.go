package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx/chatwidget/internal/config"
)

func TestNewLevelFallback(t *testing.T) {
	logger := NewWithOutput(config.LogConfig{Level: "nonsense"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger = NewWithOutput(config.LogConfig{Level: "debug"}, &bytes.Buffer{})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestComponentJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "info", Format: "json"}, &buf)

	Component(logger, "store").Info("opened")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "store", line["component"])
	assert.Equal(t, "opened", line["msg"])
}
