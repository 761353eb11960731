package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/config"
)

func TestSetupAppliesLevelAndFormat(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	Setup(config.LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	Setup(config.LogConfig{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestRegistryLoggerLevels(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	log := RegistryLogger(logrus.NewEntry(base))

	log.Log(settings.LogEvent{Group: "demo", Op: "save", Duration: time.Millisecond})
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "save", hook.LastEntry().Data["op"])
	assert.NotContains(t, hook.LastEntry().Data, "key")

	log.Log(settings.LogEvent{Group: "demo", Op: "validate", Key: "general_title", Engine: "expr", Expr: "len(value) > 0", Err: errors.New("boom")})
	require.Len(t, hook.Entries, 2)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "general_title", entry.Data["key"])
	assert.Equal(t, "expr", entry.Data["engine"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "boom")
}
