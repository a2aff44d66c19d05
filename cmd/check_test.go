package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/tools/txtar"

	"slava0135/shapecheck/config"
)

func TestMain(m *testing.M) {
	os.Chdir("../testdata")
	os.Exit(m.Run())
}

// checkArchive runs program.yaml of a txtar archive. The first line of the
// want file is the expectation, the remaining lines must appear in the
// report.
func checkArchive(t *testing.T, name string) {
	t.Helper()
	ar, err := txtar.ParseFile(name)
	require.NoError(t, err)

	mem := afero.NewMemMapFs()
	files := make(map[string]string)
	for _, f := range ar.Files {
		files[f.Name] = string(f.Data)
		require.NoError(t, afero.WriteFile(mem, f.Name, f.Data, 0o644))
	}
	want := strings.Split(strings.TrimSpace(files["want"]), "\n")
	require.NotEmpty(t, want)

	opts := config.Default()
	if _, ok := files["config.yaml"]; ok {
		opts, err = config.Load(mem, "config.yaml")
		require.NoError(t, err)
	}

	var out bytes.Buffer
	err = check(context.Background(), mem, &out, zaptest.NewLogger(t), "program.yaml", opts, want[0])
	assert.NoError(t, err, out.String())
	for _, line := range want[1:] {
		assert.Contains(t, out.String(), line)
	}
}

func TestCheck_Archives(t *testing.T) {
	names, err := filepath.Glob("*.txtar")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for _, name := range names {
		t.Run(strings.TrimSuffix(name, ".txtar"), func(t *testing.T) {
			checkArchive(t, name)
		})
	}
}

func TestCheck_FailedPathsAreAnError(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "bad.yaml", []byte("- expr: nope\n"), 0o644))

	var out bytes.Buffer
	err := check(context.Background(), mem, &out, nil, "bad.yaml", config.Default(), "")
	assert.EqualError(t, err, "bad: 1 failed paths")

	err = check(context.Background(), mem, &out, nil, "bad.yaml", config.Default(), "pass")
	assert.EqualError(t, err, "bad: expected the analysis to pass")
	err = check(context.Background(), mem, &out, nil, "bad.yaml", config.Default(), "maybe")
	assert.EqualError(t, err, `unknown expectation "maybe"`)
}

func TestCheck_Export(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "ok.yaml", []byte("- assign: n\n  value: {symbol: n}\n- assign: s\n  value: [n]\n"), 0o644))
	opts := config.Default()
	opts.ExportPath = "out"

	var out bytes.Buffer
	require.NoError(t, check(context.Background(), mem, &out, nil, "ok.yaml", opts, "pass"))
	exists, err := afero.Exists(mem, filepath.Join("out", "ok_z3.json"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCheck_MissingFile(t *testing.T) {
	err := check(context.Background(), afero.NewMemMapFs(), &bytes.Buffer{}, nil, "none.yaml", config.Default(), "")
	assert.ErrorContains(t, err, "can't open none.yaml")
}

func TestOverrideOptions(t *testing.T) {
	require.NoError(t, checkCmd.ParseFlags([]string{"--immediate", "--max-paths", "7", "--log-level", "full"}))
	opts := overrideOptions(checkCmd, config.Default())
	assert.True(t, opts.ImmediateCheck)
	assert.Equal(t, 7, opts.MaxPaths)
	assert.Equal(t, config.LogFull, opts.LogLevel)
	assert.Equal(t, config.Default().MaxSteps, opts.MaxSteps)
}

func TestList(t *testing.T) {
	var out bytes.Buffer
	listCmd.SetOut(&out)
	listCmd.Run(listCmd, nil)
	assert.Contains(t, out.String(), "  fold\n")
	assert.Contains(t, out.String(), "  z3\n")
	assert.Contains(t, out.String(), "  LibCall.guard.require_lt\n")
}
