package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/fang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/presubmit/internal/cli"
)

const licensed = "// Copyright 2024 The Nomulus Authors. All Rights Reserved.\n"

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := cli.NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))

	err := cmd.Execute()

	return stdout.String(), err
}

//nolint:paralleltest // Commands set the default logger.
func TestCheck(t *testing.T) {
	tcs := map[string]struct {
		files   map[string]string
		args    []string
		wantOut string
		wantErr error
	}{
		"clean tree": {
			files: map[string]string{
				"java/Foo.java": licensed + "class Foo {}\n",
			},
			wantOut: "",
		},
		"violations": {
			files: map[string]string{
				"java/Foo.java": "class Foo {}",
			},
			wantOut: "./java/Foo.java had errors: \n" +
				"  File did not include the license header.\n" +
				"  Source files must end in a newline.\n",
			wantErr: cli.ErrViolations,
		},
		"disabled rule": {
			files: map[string]string{
				"java/Foo.java": licensed + "class Foo {}",
			},
			args:    []string{"--disable", "trailing-newline"},
			wantOut: "",
		},
		"only rule": {
			files: map[string]string{
				"java/Foo.java": "class Foo {}",
			},
			args: []string{"--rule", "trailing-newline"},
			wantOut: "./java/Foo.java had errors: \n" +
				"  Source files must end in a newline.\n",
			wantErr: cli.ErrViolations,
		},
		"project rule set": {
			files: map[string]string{
				".presubmit.yaml": `apiVersion: presubmit.macropower.dev/v1beta1
kind: RuleSet
rules:
  - name: no-fixme
    pattern: '.*FIXME'
    extensions: [.go]
    message: Resolve FIXMEs.
`,
				"main.go":       "package main // FIXME\n",
				"java/Foo.java": "class Foo {}",
			},
			wantOut: "./main.go had errors: \n  Resolve FIXMEs.\n",
			wantErr: cli.ErrViolations,
		},
		"empty rule set": {
			files: map[string]string{
				"presubmit.yaml": "apiVersion: presubmit.macropower.dev/v1beta1\nkind: RuleSet\nrules: []\n",
				"java/Foo.java":  "class Foo {}",
			},
			wantOut: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			dir := writeTree(t, tc.files)

			out, err := execute(t, append([]string{dir}, tc.args...)...)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tc.wantOut, out)
		})
	}
}

//nolint:paralleltest // Commands set the default logger.
func TestCheck_JSON(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"web/app.js": licensed + "console.log('x');\n",
	})

	out, err := execute(t, "check", dir, "--format", "json")
	require.ErrorIs(t, err, cli.ErrViolations)

	var got struct {
		Files []struct {
			Path     string   `json:"path"`
			Messages []string `json:"messages"`
		} `json:"files"`
		Scanned int  `json:"scanned"`
		Failed  bool `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.True(t, got.Failed)
	assert.Equal(t, 1, got.Scanned)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "web/app.js", got.Files[0].Path)
	assert.Equal(t, []string{"JavaScript files should not include console logging."}, got.Files[0].Messages)
}

//nolint:paralleltest // Commands set the default logger.
func TestCheck_Errors(t *testing.T) {
	tcs := map[string]struct {
		files  map[string]string
		args   []string
		errMsg string
	}{
		"unknown rule": {
			args:   []string{"--disable", "license"},
			errMsg: `did you mean "license-header"?`,
		},
		"unknown format": {
			args:   []string{"--format", "xml"},
			errMsg: "unknown report format",
		},
		"invalid rule set": {
			files: map[string]string{
				".presubmit.yaml": "apiVersion: presubmit.macropower.dev/v1beta1\nkind: RuleSet\nrules:\n  - pattern: x\n",
			},
			errMsg: "invalid rule set",
		},
		"malformed pattern": {
			files: map[string]string{
				".presubmit.yaml": `apiVersion: presubmit.macropower.dev/v1beta1
kind: RuleSet
rules:
  - name: broken
    pattern: '(x'
    extensions: [.go]
    message: m
`,
			},
			errMsg: `rule "broken"`,
		},
		"missing config": {
			args:   []string{"--config", "does-not-exist.yaml"},
			errMsg: "read rule set",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			dir := writeTree(t, tc.files)

			_, err := execute(t, append([]string{dir}, tc.args...)...)
			require.Error(t, err)
			assert.NotErrorIs(t, err, cli.ErrViolations)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

//nolint:paralleltest // Commands set the default logger.
func TestCheck_NotDirectory(t *testing.T) {
	dir := writeTree(t, map[string]string{"Foo.java": "class Foo {}\n"})

	_, err := execute(t, filepath.Join(dir, "Foo.java"))
	require.ErrorIs(t, err, cli.ErrNotDirectory)
}

//nolint:paralleltest // Commands set the default logger.
func TestCheck_WriteAndShowConfig(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "--write-config")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".presubmit.yaml"))
	require.NoError(t, err)

	out, err := execute(t, dir, "--show-config")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: RuleSet")
	assert.Contains(t, out, "name: license-header")
	assert.Contains(t, out, "polarity: required")
	assert.Contains(t, out, "polarity: forbidden")

	// The printed rule set loads back with the same behaviour.
	custom := filepath.Join(t.TempDir(), "shown.yaml")
	require.NoError(t, os.WriteFile(custom, []byte(out), 0o600))

	src := writeTree(t, map[string]string{
		"java/Foo.java": licensed + "class Foo {}\n",
	})

	_, err = execute(t, src, "--config", custom)
	require.NoError(t, err)
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  error
		want string
	}{
		"violations are not printed": {
			err: cli.ErrViolations,
		},
		"wrapped violations are not printed": {
			err: fmt.Errorf("check: %w", cli.ErrViolations),
		},
		"other errors are printed": {
			err:  cli.ErrNotDirectory,
			want: "not a directory",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			cli.ErrorHandler(&buf, fang.Styles{}, tc.err)

			if tc.want == "" {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tc.want)
			}
		})
	}
}
