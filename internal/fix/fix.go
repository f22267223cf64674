// Package fix implements the maintenance fixes lpfix applies to a learning
// platform checkout. A fix either overwrites a target file with a fixed
// payload or performs one literal substring substitution in it.
package fix

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/AverEE0/lpfix/internal/fileutil"
)

// Kind distinguishes how a fix changes its target.
type Kind string

const (
	KindWrite   Kind = "write"
	KindReplace Kind = "replace"
)

// Status is the state of a target file relative to its fix.
type Status string

const (
	// StatusPending means applying the fix would change the file.
	StatusPending Status = "pending"
	// StatusApplied means the file already holds the desired content.
	StatusApplied Status = "applied"
	// StatusDrifted means a replace target holds neither the search nor
	// the replacement text.
	StatusDrifted Status = "drifted"
)

var (
	ErrUnknownFix   = errors.New("unknown fix")
	ErrNoMatch      = errors.New("search text not found")
	ErrVerifyFailed = errors.New("write verification failed")
)

// Metadata describes a fix.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Script      string `json:"script"`
	Kind        Kind   `json:"kind"`
	Target      string `json:"target"`
	Message     string `json:"message"`
}

// Fix is a single maintenance operation against one target file.
type Fix interface {
	Metadata() Metadata
	// Plan computes the change without touching the file system.
	Plan(root string) (*Change, error)
}

// Change is the computed effect of a fix on its target.
type Change struct {
	Fix     string
	Path    string
	Exists  bool
	Before  string
	After   string
	Matches int
	Status  Status
}

// Changed reports whether applying would alter the file.
func (c *Change) Changed() bool {
	return !c.Exists || c.Before != c.After
}

// BaseFix carries metadata shared by all fix kinds.
type BaseFix struct {
	meta Metadata
}

// Metadata returns the fix metadata.
func (b *BaseFix) Metadata() Metadata {
	return b.meta
}

// TargetPath resolves a fix target against the project root.
func TargetPath(root, target string) string {
	return filepath.Join(root, filepath.FromSlash(target))
}

// WriteFix overwrites its target with a fixed payload.
type WriteFix struct {
	BaseFix
	Payload string
}

// NewWriteFix creates a write fix.
func NewWriteFix(meta Metadata, payload string) *WriteFix {
	meta.Kind = KindWrite
	return &WriteFix{BaseFix: BaseFix{meta: meta}, Payload: payload}
}

// Plan implements Fix. A missing target is pending, not an error.
func (f *WriteFix) Plan(root string) (*Change, error) {
	path := TargetPath(root, f.meta.Target)
	change := &Change{
		Fix:    f.meta.Name,
		Path:   path,
		After:  f.Payload,
		Status: StatusPending,
	}

	before, err := fileutil.ReadText(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return change, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	change.Exists = true
	change.Before = before
	if before == f.Payload {
		change.Status = StatusApplied
	}
	return change, nil
}

// ReplaceFix substitutes every occurrence of Old with New in its target.
type ReplaceFix struct {
	BaseFix
	Old string
	New string
}

// NewReplaceFix creates a find/replace fix.
func NewReplaceFix(meta Metadata, oldText, newText string) *ReplaceFix {
	meta.Kind = KindReplace
	return &ReplaceFix{BaseFix: BaseFix{meta: meta}, Old: oldText, New: newText}
}

// Plan implements Fix. The target must exist.
func (f *ReplaceFix) Plan(root string) (*Change, error) {
	path := TargetPath(root, f.meta.Target)

	before, err := fileutil.ReadText(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	change := &Change{
		Fix:     f.meta.Name,
		Path:    path,
		Exists:  true,
		Before:  before,
		After:   before,
		Matches: strings.Count(before, f.Old),
	}

	switch {
	case change.Matches > 0:
		change.After = strings.ReplaceAll(before, f.Old, f.New)
		change.Status = StatusPending
	case strings.Contains(before, f.New):
		change.Status = StatusApplied
	default:
		change.Status = StatusDrifted
	}
	return change, nil
}
