// Package payload exposes the literal file contents that lpfix writes into,
// or prints for, the learning platform checkout.
//
// The payloads live as real .tsx files under files/ so they can be reviewed
// and diffed as source. They must stay byte-identical to what the platform
// expects; tests pin their sizes and key lines.
package payload

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

// Payload names.
const (
	NotificationsList = "notifications-list.tsx"
	RichTextEditor    = "rich-text-editor.tsx"
	ThemeToggle       = "theme-toggle.tsx"
	NotificationsBell = "notifications-bell.tsx"
)

// ErrUnknownPayload is returned when a payload name is not embedded.
var ErrUnknownPayload = errors.New("unknown payload")

//go:embed files/*.tsx
var files embed.FS

// Get returns the payload with the given name.
func Get(name string) (string, error) {
	data, err := files.ReadFile("files/" + name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrUnknownPayload, name)
		}
		return "", fmt.Errorf("read payload %s: %w", name, err)
	}
	return string(data), nil
}

// MustGet is Get for static registries. It panics on unknown names.
func MustGet(name string) string {
	s, err := Get(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns all embedded payload names, sorted.
func Names() []string {
	entries, err := files.ReadDir("files")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
