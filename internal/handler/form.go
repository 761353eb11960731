package handler

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	settings "github.com/goliatone/go-settings"
)

// ParseSubmission collects the fields posted under "<group>_settings[...]"
// into storage values. Repeated scalar names keep the last value, names
// ending in "[]" become lists and "[row][sub]" names become a list of rows
// ordered by row index.
func ParseSubmission(group string, form url.Values) settings.Values {
	prefix := settings.OptionName(group)
	values := settings.Values{}
	rows := map[string]map[int]map[string]any{}

	names := make([]string, 0, len(form))
	for name := range form {
		names = append(names, name)
	}
	// "key" sorts before "key[]" so list entries replace the hidden scalar.
	sort.Strings(names)

	for _, name := range names {
		segments, ok := splitName(prefix, name)
		if !ok {
			continue
		}
		posted := form[name]
		key := segments[0]
		switch {
		case len(segments) == 1:
			values[key] = posted[len(posted)-1]
		case len(segments) == 2 && segments[1] == "":
			values[key] = toList(posted)
		case len(segments) >= 3:
			index, err := strconv.Atoi(segments[1])
			if err != nil || index < 0 {
				continue
			}
			if rows[key] == nil {
				rows[key] = map[int]map[string]any{}
			}
			if rows[key][index] == nil {
				rows[key][index] = map[string]any{}
			}
			sub := segments[2]
			if len(segments) == 4 && segments[3] == "" {
				rows[key][index][sub] = toList(posted)
			} else if _, isList := rows[key][index][sub].([]any); !isList {
				rows[key][index][sub] = posted[len(posted)-1]
			}
		}
	}

	for key, byIndex := range rows {
		indexes := make([]int, 0, len(byIndex))
		for index := range byIndex {
			indexes = append(indexes, index)
		}
		sort.Ints(indexes)
		list := make([]any, 0, len(indexes))
		for _, index := range indexes {
			list = append(list, byIndex[index])
		}
		values[key] = list
	}
	return values
}

// splitName turns `prefix[a][0][b]` into ["a", "0", "b"].
func splitName(prefix, name string) ([]string, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || !strings.HasPrefix(rest, "[") {
		return nil, false
	}
	var segments []string
	for rest != "" {
		if rest[0] != '[' {
			return nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, false
		}
		segments = append(segments, rest[1:end])
		rest = rest[end+1:]
	}
	if len(segments) == 0 || segments[0] == "" || len(segments) > 4 {
		return nil, false
	}
	return segments, true
}

func toList(posted []string) []any {
	list := make([]any, 0, len(posted))
	for _, value := range posted {
		list = append(list, value)
	}
	return list
}
