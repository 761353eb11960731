package audit

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-settings/pkg/activity"
)

func TestHooksLogSettingsEvents(t *testing.T) {
	logger, hook := test.NewNullLogger()
	hooks := Hooks(logrus.NewEntry(logger))

	event := activity.Event{
		Verb:    activity.VerbSettingsSaved,
		ActorID: "admin",
		Group:   "my_plugin",
		Keys:    []string{"general_title"},
		Source:  "form",
	}
	require.NoError(t, hooks.Notify(context.Background(), event))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, activity.VerbSettingsSaved, entry.Data["verb"])
	assert.Equal(t, "my_plugin", entry.Data["data.option_group"])
	assert.Equal(t, "admin", entry.Data["data.actor"])
	assert.NotContains(t, entry.Data, "actor_id")
}
