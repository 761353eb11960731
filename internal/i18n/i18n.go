// Package i18n translates interface labels with go-i18n catalogs embedded in
// the binary.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/goliatone/go-settings/pkg/render"
)

//go:embed locales/*.json
var locales embed.FS

// Manager holds the message bundle and the locale used when a request does
// not ask for a supported one.
type Manager struct {
	bundle   *goi18n.Bundle
	fallback language.Tag
	matcher  language.Matcher
}

// New loads the embedded catalogs. fallback must parse as a BCP 47 tag.
func New(fallback string) (*Manager, error) {
	tag, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("i18n: invalid locale %q: %w", fallback, err)
	}

	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read catalogs: %w", err)
	}
	for _, entry := range entries {
		if _, err := bundle.LoadMessageFileFS(locales, path.Join("locales", entry.Name())); err != nil {
			return nil, fmt.Errorf("i18n: load %s: %w", entry.Name(), err)
		}
	}

	tags := bundle.LanguageTags()
	supported := make([]language.Tag, 0, len(tags)+1)
	supported = append(supported, tag)
	supported = append(supported, tags...)

	logrus.WithField("languages", len(tags)).Debug("Loaded translation catalogs")
	return &Manager{bundle: bundle, fallback: tag, matcher: language.NewMatcher(supported)}, nil
}

// Languages lists the loaded catalogs.
func (m *Manager) Languages() []language.Tag {
	return m.bundle.LanguageTags()
}

// Match picks the best supported locale for an Accept-Language header.
func (m *Manager) Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return m.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return m.fallback
	}
	_, index, confidence := m.matcher.Match(prefs...)
	if confidence == language.No {
		return m.fallback
	}
	if index == 0 {
		return m.fallback
	}
	return m.bundle.LanguageTags()[index-1]
}

// Translator returns a render.Translator for the locale matching
// acceptLanguage. Unknown ids fall back to the built-in English labels.
func (m *Manager) Translator(acceptLanguage string) render.Translator {
	localizer := goi18n.NewLocalizer(m.bundle, m.Match(acceptLanguage).String(), m.fallback.String())
	return render.TranslatorFunc(func(id string) string {
		text, err := localizer.Localize(&goi18n.LocalizeConfig{MessageID: id})
		if err != nil || text == "" {
			return render.TranslatorFunc(nil).Translate(id)
		}
		return text
	})
}
