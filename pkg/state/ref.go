package state

import (
	"fmt"
	"regexp"
	"strings"
)

// recordSuffix is appended to the option group to name its record.
const recordSuffix = "_settings"

var groupPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Ref identifies the persisted record of one option group.
type Ref struct {
	Group string
}

// Identifier returns the record name of the group, "<group>_settings".
func (r Ref) Identifier() (string, error) {
	switch {
	case r.Group == "":
		return "", fmt.Errorf("state: option group is required")
	case !groupPattern.MatchString(r.Group):
		return "", fmt.Errorf("state: invalid option group %q", r.Group)
	}
	return r.Group + recordSuffix, nil
}

// RefFromIdentifier reverses Identifier.
func RefFromIdentifier(name string) (Ref, error) {
	group, ok := strings.CutSuffix(name, recordSuffix)
	if !ok {
		return Ref{}, fmt.Errorf("state: %q is not an option record", name)
	}
	ref := Ref{Group: group}
	if _, err := ref.Identifier(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}
