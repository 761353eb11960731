package handler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	settings "github.com/goliatone/go-settings"
)

func TestParseSubmission(t *testing.T) {
	form := url.Values{
		"option_page":                                  {"my_plugin"},
		"_wpnonce":                                     {"token"},
		"my_plugin_settings[general_title]":            {"first", "second"},
		"my_plugin_settings[general_enabled]":          {"0", "1"},
		"my_plugin_settings[general_features]":         {"0"},
		"my_plugin_settings[general_features][]":       {"a", "c"},
		"my_plugin_settings[general_empty]":            {"0"},
		"my_plugin_settings[general_links][1][url]":    {"https://b.example"},
		"my_plugin_settings[general_links][0][url]":    {"https://a.example"},
		"my_plugin_settings[general_links][0][tags]":   {"0"},
		"my_plugin_settings[general_links][0][tags][]": {"x", "y"},
		"my_plugin_settings[general_links][x][url]":    {"ignored"},
		"other_settings[general_title]":                {"ignored"},
		"my_plugin_settings[]":                         {"ignored"},
		"my_plugin_settings[a][0][b][c][d]":            {"ignored"},
	}

	values := ParseSubmission("my_plugin", form)

	assert.Equal(t, settings.Values{
		"general_title":    "second",
		"general_enabled":  "1",
		"general_features": []any{"a", "c"},
		"general_empty":    "0",
		"general_links": []any{
			map[string]any{"url": "https://a.example", "tags": []any{"x", "y"}},
			map[string]any{"url": "https://b.example"},
		},
	}, values)
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		name     string
		segments []string
		ok       bool
	}{
		{"g_settings[key]", []string{"key"}, true},
		{"g_settings[key][]", []string{"key", ""}, true},
		{"g_settings[key][2][sub]", []string{"key", "2", "sub"}, true},
		{"g_settings", nil, false},
		{"g_settings[key", nil, false},
		{"g_settings[key]x", nil, false},
		{"g_settingsx[key]", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments, ok := splitName("g_settings", tc.name)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.segments, segments)
		})
	}
}
