// Package preview renders pending fix changes as unified diffs.
package preview

import (
	"io"

	"github.com/pkg/diff"
)

// Unified writes a unified diff of before and after for path to w.
// Nothing is written when the contents are equal. A created file is shown
// against /dev/null.
func Unified(w io.Writer, path string, existed bool, before, after string) error {
	if existed && before == after {
		return nil
	}
	aname := "a/" + path
	if !existed {
		aname = "/dev/null"
	}
	return diff.Text(aname, "b/"+path, before, after, w)
}
