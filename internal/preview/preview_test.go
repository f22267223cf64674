package preview

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified_Replace(t *testing.T) {
	before := "line one\n  const { pathname, method } = request\nline three\n"
	after := "line one\n  const pathname = request.nextUrl.pathname\n  const method = request.method\nline three\n"

	var buf bytes.Buffer
	require.NoError(t, Unified(&buf, "lib/csrf-middleware.ts", true, before, after))

	out := buf.String()
	assert.Contains(t, out, "--- a/lib/csrf-middleware.ts")
	assert.Contains(t, out, "+++ b/lib/csrf-middleware.ts")
	assert.Contains(t, out, "-  const { pathname, method } = request")
	assert.Contains(t, out, "+  const pathname = request.nextUrl.pathname")
	assert.Contains(t, out, "+  const method = request.method")
	assert.NotContains(t, out, "-line one")
}

func TestUnified_NewFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Unified(&buf, "components/x.tsx", false, "", "\"use client\"\n"))

	out := buf.String()
	assert.Contains(t, out, "--- /dev/null")
	assert.Contains(t, out, "+++ b/components/x.tsx")
	assert.Contains(t, out, "+\"use client\"")
}

func TestUnified_NoChange(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Unified(&buf, "same.ts", true, "a\nb\n", "a\nb\n"))
	assert.Empty(t, buf.String())
}
