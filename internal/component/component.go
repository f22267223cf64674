// Package component prints stock UI components for manual upload into the
// learning platform checkout.
package component

import (
	"fmt"
	"io"
	"strings"

	"github.com/AverEE0/lpfix/internal/payload"
)

var names = []string{payload.ThemeToggle, payload.NotificationsBell}

// Names returns the printable component names.
func Names() []string {
	return append([]string(nil), names...)
}

// Usage is printed when no known component is requested.
func Usage() string {
	return fmt.Sprintf("Usage: lpfix upload-components [%s]", strings.Join(Names(), "|"))
}

// Lookup returns the component source for name.
func Lookup(name string) (string, bool) {
	for _, n := range names {
		if n == name {
			return payload.MustGet(n), true
		}
	}
	return "", false
}

// Print writes the component named by args[0] followed by a newline, or
// the usage line when args is empty or names no component.
func Print(w io.Writer, args []string) error {
	if len(args) > 0 {
		if src, ok := Lookup(args[0]); ok {
			_, err := fmt.Fprintln(w, src)
			return err
		}
	}
	_, err := fmt.Fprintln(w, Usage())
	return err
}
