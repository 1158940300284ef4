package main

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/simzip"
	"github.com/xenking/simzip/internal/config"
)

// The command tests swap the slog default and some set environment
// variables, so they run sequentially.

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(io.Discard)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stderr.String(), err
}

func writeFile(t *testing.T, path, content string, mode fs.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
}

func readArchive(t *testing.T, path string) (*zip.ReadCloser, map[string]string) {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { zr.Close() })

	contents := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[f.Name] = string(data)
	}
	return zr, contents
}

func TestRootCmdWritesArchive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), strings.Repeat("alpha ", 100), 0o644)
	writeFile(t, filepath.Join(dir, "b.sh"), "#!/bin/sh\necho b\n", 0o755)
	out := filepath.Join(dir, "out.zip")

	_, err := execute(t, "from stdin",
		"-o", out,
		"-m", "deflate",
		"-l", "9",
		"-c", "cli archive",
		"--dir", "files",
		"--stdin-name", "stdin.txt",
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.sh"),
	)
	require.NoError(t, err)

	zr, contents := readArchive(t, out)
	assert.Equal(t, "cli archive", zr.Comment)
	assert.Equal(t, map[string]string{
		"files/a.txt": strings.Repeat("alpha ", 100),
		"files/b.sh":  "#!/bin/sh\necho b\n",
		"stdin.txt":   "from stdin",
	}, contents)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method, f.Name)
		if f.Name == "files/b.sh" {
			assert.Equal(t, fs.FileMode(0o777), f.Mode().Perm())
		}
	}
	assert.Equal(t, []string{"files/a.txt", "files/b.sh", "stdin.txt"}, names)
}

func TestRootCmdLZMA(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("lzma ", 1_000)
	writeFile(t, filepath.Join(dir, "a.txt"), content, 0o644)
	out := filepath.Join(dir, "lzma.zip")

	_, err := execute(t, "", "-o", out, "-m", "lzma", filepath.Join(dir, "a.txt"))
	require.NoError(t, err)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	f := zr.File[0]
	assert.Equal(t, uint16(simzip.LZMA), f.Method)
	assert.Equal(t, uint64(len(content)), f.UncompressedSize64)
	assert.Less(t, f.CompressedSize64, f.UncompressedSize64)
}

func TestRootCmdConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha", 0o644)
	out := filepath.Join(dir, "from-config.zip")
	cfgPath := filepath.Join(dir, "config.toml")
	writeFile(t, cfgPath, `output = "`+filepath.ToSlash(out)+`"
comment = "from config"
method = "deflate"
`, 0o644)

	stderr, err := execute(t, "", "--config", cfgPath, filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using config file")

	zr, contents := readArchive(t, out)
	assert.Equal(t, "from config", zr.Comment)
	assert.Equal(t, map[string]string{"a.txt": "alpha"}, contents)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)
}

func TestRootCmdMissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "", "--config", filepath.Join(dir, "nope.toml"), "-o", filepath.Join(dir, "out.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestRootCmdEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha", 0o644)
	t.Setenv("SIMZIP_COMMENT", "from env")
	t.Setenv("SIMZIP_DIR", "env")

	out := filepath.Join(dir, "env.zip")
	_, err := execute(t, "", "-o", out, filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	zr, contents := readArchive(t, out)
	assert.Equal(t, "from env", zr.Comment)
	assert.Contains(t, contents, "env/a.txt")

	// Flags win over the environment.
	out = filepath.Join(dir, "flag.zip")
	_, err = execute(t, "", "-o", out, "-c", "from flag", filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	zr, _ = readArchive(t, out)
	assert.Equal(t, "from flag", zr.Comment)
}

func TestRootCmdFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha", 0o644)

	tests := []struct {
		name   string
		args   []string
		target error
		errMsg string
	}{
		{
			name:   "missing output",
			args:   []string{filepath.Join(dir, "a.txt")},
			errMsg: "output file is required",
		},
		{
			name:   "unknown method",
			args:   []string{"-m", "zstd", filepath.Join(dir, "a.txt")},
			errMsg: "unknown compression method",
		},
		{
			name:   "level out of range",
			args:   []string{"-m", "deflate", "-l", "11", filepath.Join(dir, "a.txt")},
			errMsg: "out of range",
		},
		{
			name:   "unimplemented method",
			args:   []string{"-m", "bzip2", filepath.Join(dir, "a.txt")},
			target: simzip.ErrUnsupportedCompression,
		},
		{
			name:   "missing input",
			args:   []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "missing.txt")},
			target: fs.ErrNotExist,
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, "fail"+string(rune('a'+i))+".zip")
			args := tt.args
			if tt.name != "missing output" {
				args = append([]string{"-o", out}, args...)
			}
			_, err := execute(t, "", args...)
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
			assert.NoFileExists(t, out)
		})
	}
}

func TestBuildArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha", 0o644)
	logger := slog.New(slog.DiscardHandler)

	cfg := &config.Config{
		OutputFile:       filepath.Join(dir, "out.zip"),
		Method:           "deflate",
		Level:            1,
		RejectDuplicates: true,
		StdinName:        "a.txt",
	}
	a, err := buildArchive(cfg, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "a.txt"),
	}, strings.NewReader("stdin"), logger)
	require.NoError(t, err)

	// The second file and standard input collide with the first entry.
	entries := a.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].FullName())
	assert.Equal(t, simzip.Deflate, entries[0].Method)

	require.NoError(t, run(cfg, []string{filepath.Join(dir, "a.txt")}, strings.NewReader(""), logger))
	_, contents := readArchive(t, cfg.OutputFile)
	assert.Equal(t, "alpha", contents["a.txt"])

	names := make([]string, 0, len(contents))
	for name := range contents {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt"}, names)
}
