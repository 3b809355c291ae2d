package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	InitWithFile("debug", FileOptions{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	t.Cleanup(func() { Logger = nil })

	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	WithFields(logrus.Fields{"session_id": "page-1"}).Info("Consultation page connected")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":"page-1"`)
	assert.Contains(t, string(data), `"msg":"Consultation page connected"`)
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	Init("chatty")
	t.Cleanup(func() { Logger = nil })

	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}

func TestNilLoggerIsSilent(t *testing.T) {
	Logger = nil
	assert.NotPanics(t, func() {
		Infof("nothing %d", 1)
		WithFields(logrus.Fields{"k": "v"}).Warn("dropped")
	})
}
