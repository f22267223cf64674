package fix

import (
	"context"
	"fmt"

	"github.com/AverEE0/lpfix/internal/config"
	"github.com/AverEE0/lpfix/internal/fileutil"
	"github.com/AverEE0/lpfix/internal/logger"
)

// readBack rereads a written target for verification.
var readBack = fileutil.ReadText

// Options control Apply.
type Options struct {
	// DryRun computes the change but never writes.
	DryRun bool
	// OnMissing is one of the config.OnMissing* policies and decides what
	// a drifted replace target means. Empty behaves like "warn".
	OnMissing string
}

// Result is the outcome of applying one fix.
type Result struct {
	Fix     Metadata
	Change  *Change
	Written bool
	Message string
}

// Report is the status of one fix in a Check.
type Report struct {
	Fix    Metadata
	Status Status
	Err    error
}

// Apply runs a fix against root. The confirmation message is only returned
// after the written bytes have been read back and compared.
func Apply(ctx context.Context, f Fix, root string, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := f.Metadata()
	log := logger.GetLogger()

	change, err := f.Plan(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", meta.Name, err)
	}

	result := &Result{Fix: meta, Change: change}

	switch change.Status {
	case StatusApplied:
		result.Message = fmt.Sprintf("%s already applied to %s", meta.Name, meta.Target)
		log.Info().Str("fix", meta.Name).Str("target", change.Path).Msg("Fix already applied")
		return result, nil

	case StatusDrifted:
		result.Message = fmt.Sprintf("%s: nothing to replace in %s, file left unchanged", meta.Name, meta.Target)
		switch opts.OnMissing {
		case config.OnMissingFail:
			return result, fmt.Errorf("%w: %s in %s", ErrNoMatch, meta.Name, meta.Target)
		case config.OnMissingIgnore:
		default:
			log.Warn().Str("fix", meta.Name).Str("target", change.Path).Msg("Search text not found and replacement absent - target has drifted")
		}
		return result, nil
	}

	if opts.DryRun {
		result.Message = fmt.Sprintf("%s would change %s (dry run)", meta.Name, meta.Target)
		return result, nil
	}

	if err := fileutil.WriteFile(change.Path, []byte(change.After)); err != nil {
		return nil, fmt.Errorf("%s: write %s: %w", meta.Name, change.Path, err)
	}

	got, err := readBack(change.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: read back %s: %w", meta.Name, change.Path, err)
	}
	if got != change.After {
		return nil, fmt.Errorf("%w: %s", ErrVerifyFailed, change.Path)
	}

	result.Written = true
	result.Message = meta.Message
	log.Info().Str("fix", meta.Name).Str("target", change.Path).Str("kind", string(meta.Kind)).Msg("Fix applied")

	return result, nil
}

// ApplyAll applies every fix in registry order and stops at the first error.
func ApplyAll(ctx context.Context, root string, opts Options) ([]*Result, error) {
	var results []*Result
	for _, f := range All() {
		res, err := Apply(ctx, f, root, opts)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Check reports the status of every fix without writing.
func Check(root string) []Report {
	fixes := All()
	reports := make([]Report, 0, len(fixes))
	for _, f := range fixes {
		r := Report{Fix: f.Metadata()}
		change, err := f.Plan(root)
		if err != nil {
			r.Err = err
		} else {
			r.Status = change.Status
		}
		reports = append(reports, r)
	}
	return reports
}
