package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/futig/rag-backend/internal/pkg/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_DryRun(t *testing.T) {
	t.Setenv("ENABLE_MOCKS", "true")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("EMBEDDING_DIMENSIONS", "32")
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	good := filepath.Join(dir, "manual.pdf")
	require.NoError(t, os.WriteFile(good, pdftest.MustBuild(t, "Press the reset button for five seconds."), 0o600))
	notPDF := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("plain text"), 0o600))
	missing := filepath.Join(dir, "missing.pdf")

	var out bytes.Buffer
	failed, err := run("test", true, time.Minute, []string{good, notPDF, missing}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, failed)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "FAIL "+notPDF+" code=invalid_request"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "FAIL "+missing+" code=invalid_request"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "OK   "+good+" document_id="), lines[2])
	assert.Contains(t, lines[2], "pages=1")
}
