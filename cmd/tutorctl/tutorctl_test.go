package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/tutorgrade/internal/grading"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGradeInline(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	out, err := run(t, "", "grade", "--type", "주관식", "--canonical", "The flower is beautiful.",
		"--keywords", "beautiful, flower", "a flower")
	require.NoError(t, err)

	var res grading.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, "Partially correct. Keywords found: flower", res.Feedback)
}

func TestImportExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("DATA_DIR", dir)

	src := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, os.WriteFile(src, []byte(
		"id,type,content,option1,option2,answer\nq1,객관식,Fruit?,Apple,Chair,Apple\n"), 0o644))

	out, err := run(t, "", "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 questions")

	out, err = run(t, "", "grade", "--problem", "q1", "apple")
	require.NoError(t, err)
	assert.Contains(t, out, `"score": 100`)

	dst := filepath.Join(t.TempDir(), "bank-out.csv")
	_, err = run(t, "", "export", "--problems", "-o", dst)
	require.NoError(t, err)
	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "q1,,,multiple_choice,,Fruit?,Apple,Chair")
}

func TestImportRejectsInvalid(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	src := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(src, []byte("id,type,answer\nq1,객관식,Apple\n"), 0o644))

	_, err := run(t, "", "import", "--dry-run=false", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 questions invalid")
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, err := run(t, "s3cret\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
