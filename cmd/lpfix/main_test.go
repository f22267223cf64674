package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AverEE0/lpfix/internal/payload"
)

const bitrixSource = "if (contactData.phone) {\n  payload.fields.PHONE = [{ VALUE: contactData.phone, VALUE_TYPE: 'WORK' }]\n}\n"

// runCLI runs the command against an isolated config file.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("LPFIX_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestUploadComponents(t *testing.T) {
	usage := "Usage: lpfix upload-components [theme-toggle.tsx|notifications-bell.tsx]\n"

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"theme toggle", []string{"upload-components", "theme-toggle.tsx"}, payload.MustGet(payload.ThemeToggle) + "\n"},
		{"notifications bell", []string{"upload-components", "notifications-bell.tsx"}, payload.MustGet(payload.NotificationsBell) + "\n"},
		{"no argument", []string{"upload-components"}, usage},
		{"unknown argument", []string{"upload-components", "header.tsx"}, usage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.args...)
			assert.Equal(t, 0, code)
			assert.Equal(t, tt.want, stdout)
			assert.Empty(t, stderr)
		})
	}
}

func TestLegacyWriteCommands(t *testing.T) {
	tests := []struct {
		cmd     string
		target  string
		payload string
		message string
	}{
		{"create-notifications-list", "components/notifications/notifications-list.tsx", payload.NotificationsList, "Created notifications-list.tsx\n"},
		{"restore-rich-text-editor", "components/ui/rich-text-editor.tsx", payload.RichTextEditor, "File restored successfully!\n"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			root := t.TempDir()

			code, stdout, stderr := runCLI(t, tt.cmd, "--root", root)
			require.Equal(t, 0, code, stderr)
			assert.Equal(t, tt.message, stdout)
			assert.Equal(t, payload.MustGet(tt.payload), readFile(t, filepath.Join(root, filepath.FromSlash(tt.target))))
		})
	}
}

func TestLegacyReplaceCommand(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "lib/bitrix24.ts", bitrixSource)

	code, stdout, stderr := runCLI(t, "fix-bitrix24", "--root="+root)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "File fixed successfully!\n", stdout)
	assert.Equal(t,
		"if (contactData.phone) {\n  (payload.fields as any).PHONE = [{ VALUE: contactData.phone, VALUE_TYPE: 'WORK' }]\n}\n",
		readFile(t, path))

	// second run is a no-op
	code, stdout, _ = runCLI(t, "fix-bitrix24", "--root", root)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "already applied")
}

func TestReplaceCommand_MissingTarget(t *testing.T) {
	code, stdout, stderr := runCLI(t, "fix-csrf-middleware", "--root", t.TempDir())
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout, "no success message when the target is missing")
	assert.True(t, strings.HasPrefix(stderr, "error: "))
	assert.Contains(t, stderr, "csrf-middleware.ts")
}

func TestReplaceCommand_DriftPolicy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/csrf-middleware.ts", "export {}\n")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("patch:\n  on_missing: fail\n"), 0644))

	code, _, _ := runCLI(t, "fix-csrf-middleware", "--root", root)
	assert.Equal(t, 0, code, "default policy only warns")

	code, _, stderr := runCLI(t, "fix-csrf-middleware", "--root", root, "--config", cfgPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "search text not found")
}

func TestApplyAll_DryRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/bitrix24.ts", bitrixSource)
	csrf := writeFile(t, root, "lib/csrf-middleware.ts", "  const { pathname, method } = request\n")

	code, stdout, stderr := runCLI(t, "apply", "all", "--dry-run", "--root", root)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "+++ b/lib/bitrix24.ts")
	assert.Contains(t, stdout, "+++ b/lib/csrf-middleware.ts")
	assert.Contains(t, stdout, "--- /dev/null")
	assert.Contains(t, stdout, "(dry run)")

	assert.Equal(t, "  const { pathname, method } = request\n", readFile(t, csrf))
	assert.NoFileExists(t, filepath.Join(root, "components", "ui", "rich-text-editor.tsx"))
}

func TestApplyAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/bitrix24.ts", bitrixSource)
	writeFile(t, root, "lib/csrf-middleware.ts", "  const { pathname, method } = request\n")

	code, stdout, stderr := runCLI(t, "apply", "all", "--root", root)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, strings.Join([]string{
		"Created notifications-list.tsx",
		"File fixed successfully!",
		"File fixed successfully!",
		"File restored successfully!",
	}, "\n")+"\n", stdout)

	code, stdout, _ = runCLI(t, "check", "--root", root)
	assert.Equal(t, 0, code)
	assert.Equal(t, 4, strings.Count(stdout, "applied"))
}

func TestCheck_ReportsErrors(t *testing.T) {
	code, stdout, stderr := runCLI(t, "check", "--root", t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "create-notifications-list")
	assert.Contains(t, stdout, "pending")
	assert.Contains(t, stdout, "error")
	assert.Contains(t, stderr, "error: fix-bitrix24:")
	assert.NotContains(t, stderr, "check failed")
}

func TestDiff(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/bitrix24.ts", bitrixSource)

	code, stdout, stderr := runCLI(t, "diff", "fix-bitrix24", "--root", root)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "-  payload.fields.PHONE")
	assert.Contains(t, stdout, "+  (payload.fields as any).PHONE")

	code, stdout, _ = runCLI(t, "diff", "restore-rich-text-editor", "--root", root)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "+++ b/components/ui/rich-text-editor.tsx")

	code, _, stderr = runCLI(t, "diff")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "usage: lpfix diff <fix>")
}

func TestList(t *testing.T) {
	code, stdout, _ := runCLI(t, "list")
	assert.Equal(t, 0, code)
	for _, s := range []string{"NAME", "fix_bitrix24.py", "lib/csrf-middleware.ts", "restore-rich-text-editor", "write", "replace"} {
		assert.Contains(t, stdout, s)
	}
}

func TestUnknownCommandAndFlags(t *testing.T) {
	code, _, stderr := runCLI(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command: frobnicate")

	code, _, stderr = runCLI(t, "apply", "fix-bitrix24", "--force")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown flag: --force")

	code, _, stderr = runCLI(t, "apply", "fix-nothing", "--root", t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown fix")
}

func TestStrayArguments(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"list", "extra"}, "usage: lpfix list"},
		{[]string{"check", "all"}, "usage: lpfix check"},
		{[]string{"watch", "lib"}, "usage: lpfix watch [--apply]"},
		{[]string{"mcp", "stdio"}, "usage: lpfix mcp"},
		{[]string{"fix-bitrix24", "lib/bitrix24.ts"}, "usage: lpfix fix-bitrix24"},
		{[]string{"apply", "fix-bitrix24", "fix-csrf-middleware"}, "usage: lpfix apply"},
	}

	// mcp logs to a file under the data dir
	data := t.TempDir()
	t.Setenv("HOME", data)
	t.Setenv("XDG_DATA_HOME", data)
	t.Setenv("APPDATA", data)

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			code, stdout, stderr := runCLI(t, append(tt.args, "--root", t.TempDir())...)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestHelpAndVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "upload-components")

	code, stdout, _ = runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "lpfix version dev\n", stdout)

	code, stdout, _ = runCLI(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Commands:")
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     flags
		wantRest []string
		wantErr  bool
	}{
		{"positional only", []string{"all"}, flags{}, []string{"all"}, false},
		{"separate values", []string{"--root", "/r", "x", "--config", "c.yaml"}, flags{root: "/r", configPath: "c.yaml"}, []string{"x"}, false},
		{"equals values", []string{"--root=/r", "--config=c.toml"}, flags{root: "/r", configPath: "c.toml"}, nil, false},
		{"booleans", []string{"--dry-run", "all", "--apply"}, flags{dryRun: true, apply: true}, []string{"all"}, false},
		{"missing value", []string{"--root"}, flags{}, nil, true},
		{"unknown", []string{"--verbose"}, flags{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest, err := parseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}
