package render

// Message identifiers for interface labels. DefaultMessages holds their
// English text.
const (
	MsgSaveChanges    = "save_changes"
	MsgExportSettings = "export_settings"
	MsgImportSettings = "import_settings"
	MsgBrowse         = "browse"
	MsgLearnMore      = "learn_more"
	MsgSettingsSaved  = "settings_saved"
	MsgActionFailed   = "action_failed"
	MsgFixErrors      = "fix_errors"
)

var defaultMessages = map[string]string{
	MsgSaveChanges:    "Save Changes",
	MsgExportSettings: "Export Settings",
	MsgImportSettings: "Import Settings",
	MsgBrowse:         "Browse",
	MsgLearnMore:      "Learn More",
	MsgSettingsSaved:  "Settings saved.",
	MsgActionFailed:   "Action failed.",
	MsgFixErrors:      "Some settings were not saved. Please fix the highlighted fields.",
}

// DefaultMessages returns a copy of the English labels keyed by message id.
func DefaultMessages() map[string]string {
	out := make(map[string]string, len(defaultMessages))
	for id, text := range defaultMessages {
		out[id] = text
	}
	return out
}

// Translator resolves an interface label for the current locale.
type Translator interface {
	Translate(messageID string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(messageID string) string

// Translate implements Translator.
func (f TranslatorFunc) Translate(messageID string) string {
	if f == nil {
		return defaultTranslator{}.Translate(messageID)
	}
	return f(messageID)
}

type defaultTranslator struct{}

func (defaultTranslator) Translate(messageID string) string {
	if text, ok := defaultMessages[messageID]; ok {
		return text
	}
	return messageID
}
