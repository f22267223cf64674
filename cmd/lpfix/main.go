// Package main provides the CLI entry point for lpfix.
//
// lpfix applies maintenance fixes to a checkout of the corporate learning
// platform. Each fix either writes a known-good component file or performs
// one literal find/replace in a source file.
//
// Usage:
//
//	lpfix list                          - List fixes and their targets
//	lpfix check                         - Show the status of every fix
//	lpfix apply <fix>|all [--dry-run]   - Apply one or all fixes
//	lpfix diff <fix>                    - Show the pending change as a unified diff
//	lpfix watch [--apply]               - Re-check targets when they change
//	lpfix mcp                           - Serve fixes as MCP tools on stdio
//	lpfix upload-components <name>      - Print a stock component
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/AverEE0/lpfix/internal/component"
	"github.com/AverEE0/lpfix/internal/config"
	"github.com/AverEE0/lpfix/internal/fix"
	"github.com/AverEE0/lpfix/internal/logger"
	"github.com/AverEE0/lpfix/internal/mcp"
	"github.com/AverEE0/lpfix/internal/preview"
	"github.com/AverEE0/lpfix/internal/watch"
)

// version is set via -ldflags at build time
var version = "dev"

// errCheckFailed makes check exit non-zero without an extra error line.
var errCheckFailed = errors.New("check failed")

// flags holds options accepted by every command.
type flags struct {
	root       string
	configPath string
	dryRun     bool
	apply      bool
}

// cli binds commands to their output streams and loaded configuration.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	flags  flags
	cfg    *config.Config
}

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	logger.Stop()
	os.Exit(code)
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stdout)
		return 1
	}

	cmd := args[0]

	// upload-components only ever prints its payload or the usage line
	if cmd == "upload-components" {
		if err := component.Print(stdout, args[1:]); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	switch cmd {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "lpfix version %s\n", version)
		return 0
	}

	f, rest, err := parseFlags(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	c := &cli{stdout: stdout, stderr: stderr, flags: f}
	if err := c.setup(cmd); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	switch cmd {
	case "list":
		err = c.cmdList(rest)
	case "check":
		err = c.cmdCheck(rest)
	case "apply":
		err = c.cmdApply(rest)
	case "diff":
		err = c.cmdDiff(rest)
	case "watch":
		err = c.cmdWatch(rest)
	case "mcp", "mcp-server":
		err = c.cmdMCP(rest)
	case fix.NameCreateNotificationsList, fix.NameFixBitrix24, fix.NameFixCSRFMiddleware, fix.NameRestoreRichTextEditor:
		if len(rest) != 0 {
			err = fmt.Errorf("usage: lpfix %s", cmd)
			break
		}
		err = c.applyNamed(cmd)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `lpfix - Maintenance fixes for the corporate learning platform

Commands:
  list                                List fixes and their targets
  check                               Show the status of every fix
  apply <fix>|all [--dry-run]         Apply one fix, or all in order
  diff <fix>                          Show the pending change as a unified diff
  watch [--apply]                     Re-check targets when they change on disk
  mcp                                 Serve fixes as MCP tools on stdio
  upload-components <name>            Print theme-toggle.tsx or notifications-bell.tsx
  version                             Show version
  help                                Show this help

Fixes (also runnable directly, e.g. "lpfix fix-bitrix24"):
  create-notifications-list           Write components/notifications/notifications-list.tsx
  fix-bitrix24                        Patch lib/bitrix24.ts
  fix-csrf-middleware                 Patch lib/csrf-middleware.ts
  restore-rich-text-editor            Write components/ui/rich-text-editor.tsx

Flags:
  --root DIR                          Learning platform checkout (default: project.root or .)
  --config PATH                       Config file (default: $LPFIX_CONFIG or ~/.config/lpfix/config.yaml)
  --dry-run                           Show what apply would change without writing
  --apply                             With watch, re-apply fixes whose target reverted`)
}

// parseFlags splits global flags from positional arguments.
func parseFlags(args []string) (flags, []string, error) {
	var f flags
	var rest []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")

		switch name {
		case "--root", "--config":
			if !hasValue {
				if i+1 >= len(args) {
					return f, nil, fmt.Errorf("%s requires a value", name)
				}
				value = args[i+1]
				i++
			}
			if name == "--root" {
				f.root = value
			} else {
				f.configPath = value
			}
		case "--dry-run":
			f.dryRun = true
		case "--apply":
			f.apply = true
		default:
			if strings.HasPrefix(arg, "--") {
				return f, nil, fmt.Errorf("unknown flag: %s", arg)
			}
			rest = append(rest, arg)
		}
	}

	return f, rest, nil
}

// setup loads configuration and initializes logging.
func (c *cli) setup(cmd string) error {
	path := c.flags.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.flags.root != "" {
		cfg.Project.Root = c.flags.root
	}

	// stdout carries the MCP protocol
	if cmd == "mcp" || cmd == "mcp-server" {
		cfg.Logging.Output = []string{"file"}
	}

	c.cfg = cfg
	logger.SetupLogger(cfg)
	return nil
}

func (c *cli) fixOptions() fix.Options {
	return fix.Options{
		DryRun:    c.flags.dryRun,
		OnMissing: c.cfg.Patch.OnMissing,
	}
}

// cmdList prints the fix registry.
func (c *cli) cmdList(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: lpfix list")
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tTARGET\tSCRIPT")
	for _, f := range fix.All() {
		meta := f.Metadata()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", meta.Name, meta.Kind, meta.Target, meta.Script)
	}
	return tw.Flush()
}

// cmdCheck prints the status of every fix. It fails when a target cannot
// be read, or when a target drifted and patch.on_missing is "fail".
func (c *cli) cmdCheck(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: lpfix check")
	}

	failed := false
	var errs []fix.Report

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tTARGET")
	for _, r := range fix.Check(c.cfg.Project.Root) {
		status := string(r.Status)
		if r.Err != nil {
			status = "error"
			errs = append(errs, r)
		}
		if r.Status == fix.StatusDrifted && c.cfg.Patch.OnMissing == config.OnMissingFail {
			failed = true
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Fix.Name, status, r.Fix.Target)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range errs {
		fmt.Fprintf(c.stderr, "error: %s: %v\n", r.Fix.Name, r.Err)
	}

	if failed || len(errs) > 0 {
		return errCheckFailed
	}
	return nil
}

// cmdApply applies one fix, or every fix with "all".
func (c *cli) cmdApply(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: lpfix apply <fix>|all [--dry-run]")
	}

	if args[0] == "all" {
		results, err := fix.ApplyAll(context.Background(), c.cfg.Project.Root, c.fixOptions())
		for _, res := range results {
			if perr := c.printResult(res); perr != nil {
				return perr
			}
		}
		return err
	}

	return c.applyNamed(args[0])
}

// applyNamed applies a single fix and prints its confirmation.
func (c *cli) applyNamed(name string) error {
	f, err := fix.Lookup(name)
	if err != nil {
		return err
	}

	res, err := fix.Apply(context.Background(), f, c.cfg.Project.Root, c.fixOptions())
	if err != nil {
		return err
	}
	return c.printResult(res)
}

func (c *cli) printResult(res *fix.Result) error {
	if c.flags.dryRun && res.Change != nil && res.Change.Changed() {
		ch := res.Change
		if err := preview.Unified(c.stdout, res.Fix.Target, ch.Exists, ch.Before, ch.After); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.stdout, res.Message)
	return err
}

// cmdDiff shows the pending change of one fix without writing.
func (c *cli) cmdDiff(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: lpfix diff <fix>")
	}

	f, err := fix.Lookup(args[0])
	if err != nil {
		return err
	}

	change, err := f.Plan(c.cfg.Project.Root)
	if err != nil {
		return err
	}

	if !change.Changed() {
		fmt.Fprintf(c.stdout, "%s: no changes (%s)\n", args[0], change.Status)
		return nil
	}
	return preview.Unified(c.stdout, f.Metadata().Target, change.Exists, change.Before, change.After)
}

// cmdWatch re-checks targets as they change until interrupted.
func (c *cli) cmdWatch(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: lpfix watch [--apply]")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.NewWatcher(c.cfg.Project.Root, watch.Options{
		Debounce: time.Duration(c.cfg.Watch.DebounceMs) * time.Millisecond,
		Apply:    c.flags.apply,
		Fix:      fix.Options{OnMissing: c.cfg.Patch.OnMissing},
		Notify: func(ev watch.Event) {
			switch {
			case ev.Err != nil:
				fmt.Fprintf(c.stdout, "%s: error: %v\n", ev.Fix, ev.Err)
			case ev.Applied:
				fmt.Fprintf(c.stdout, "%s: re-applied\n", ev.Fix)
			default:
				fmt.Fprintf(c.stdout, "%s: %s\n", ev.Fix, ev.Status)
			}
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Watching %s (Ctrl+C to stop)\n", c.cfg.Project.Root)
	return w.Run(ctx)
}

// cmdMCP serves the MCP tools on stdio.
func (c *cli) cmdMCP(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: lpfix mcp")
	}

	srv := mcp.NewServer(c.cfg.Project.Root, version, fix.Options{OnMissing: c.cfg.Patch.OnMissing})
	return srv.ServeStdio()
}
