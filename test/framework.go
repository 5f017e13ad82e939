// Package test runs whole scripts through a session and checks what they
// print, report and exit with.
package test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousajf1/nushell/internal/config"
	"github.com/sousajf1/nushell/internal/host"
	"github.com/sousajf1/nushell/internal/session"
)

// TestCase represents a single script run
type TestCase struct {
	Name   string            // Test name
	Script string            // script content
	Files  map[string]string // files written to the start directory first
	Stdin  string            // lines fed to the interactive loop after Script
	// Setup adjusts the configuration; dir is the start directory.
	Setup      func(cfg *config.Config, dir string)
	ExitCode   int    // Expected exit code
	Stdout     string // Expected stdout content
	Stderr     string // Expected stderr content
	ShouldFail bool   // Whether the script itself should fail
}

// Result is what a script run produced.
type Result struct {
	Dir      string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Run executes testCase in a fresh session rooted at a temporary directory.
func Run(t *testing.T, testCase TestCase) Result {
	t.Helper()

	dir := t.TempDir()
	for name, content := range testCase.Files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.DefaultConfig()
	cfg.Shell.StartDir = dir
	if testCase.Setup != nil {
		testCase.Setup(cfg, dir)
	}

	var stdout, stderr bytes.Buffer
	exitCode := -1
	ctx := context.Background()
	s, err := session.New(ctx, session.Options{
		Config: cfg,
		Host:   host.NewTerminal(&stdout, &stderr),
		Exit: func(code int) {
			if exitCode < 0 {
				exitCode = code
			}
		},
	})
	require.NoError(t, err, "starting session")

	result := Result{Dir: dir}
	if testCase.Script != "" {
		result.Err = s.Run(ctx, testCase.Script, "test.nu")
	}
	if testCase.Stdin != "" && !s.Context().Terminated() {
		require.NoError(t, s.Loop(ctx, strings.NewReader(testCase.Stdin), io.Discard))
	}

	if exitCode < 0 {
		exitCode = s.ExitCode()
	}
	result.ExitCode = exitCode
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if testing.Verbose() {
		fmt.Printf("=== Test: %s ===\n", testCase.Name)
		fmt.Printf("Exit Code: %d\n", result.ExitCode)
		fmt.Printf("Stdout:\n%s\n", result.Stdout)
		fmt.Printf("Stderr:\n%s\n", result.Stderr)
		fmt.Println("=================")
	}
	return result
}

// RunScriptTest executes a script and validates the results
func RunScriptTest(t *testing.T, testCase TestCase) {
	t.Helper()
	result := Run(t, testCase)

	if testCase.ShouldFail {
		assert.Error(t, result.Err, "script should fail")
	} else {
		assert.NoError(t, result.Err)
	}
	assert.Equal(t, testCase.ExitCode, result.ExitCode, "exit code")

	if testCase.Stdout != "" {
		assert.Equal(t, strings.TrimSpace(testCase.Stdout), strings.TrimSpace(result.Stdout), "stdout")
	}
	if testCase.Stderr != "" {
		assert.Contains(t, result.Stderr, strings.TrimSpace(testCase.Stderr), "stderr")
	}
}

// LoadTestDataFile loads a test file from testdata directory
func LoadTestDataFile(filename string) (string, error) {
	content, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ParseTestCase parses a test case from a structured comment format.
// Directives are comments so the file still runs as a plain script.
func ParseTestCase(content string) *TestCase {
	lines := strings.Split(content, "\n")
	testCase := &TestCase{}

	var scriptLines []string
	var mode, file string

	appendTo := func(dst *string, line string) {
		if *dst != "" {
			*dst += "\n"
		}
		*dst += line
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "# TEST:"):
			testCase.Name = strings.TrimSpace(strings.TrimPrefix(line, "# TEST:"))
		case strings.HasPrefix(line, "# EXPECT_EXIT:"):
			fmt.Sscanf(line, "# EXPECT_EXIT: %d", &testCase.ExitCode)
		case strings.HasPrefix(line, "# SHOULD_FAIL"):
			testCase.ShouldFail = true
		case strings.HasPrefix(line, "# EXPECT_STDOUT:"):
			mode = "stdout"
		case strings.HasPrefix(line, "# EXPECT_STDERR:"):
			mode = "stderr"
		case strings.HasPrefix(line, "# STDIN:"):
			mode = "stdin"
		case strings.HasPrefix(line, "# FILE:"):
			mode = "file"
			file = strings.TrimSpace(strings.TrimPrefix(line, "# FILE:"))
			if testCase.Files == nil {
				testCase.Files = map[string]string{}
			}
			testCase.Files[file] = ""
		case strings.HasPrefix(line, "# END_"):
			mode = ""
		case strings.HasPrefix(line, "#") && mode != "":
			text := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			switch mode {
			case "stdout":
				appendTo(&testCase.Stdout, text)
			case "stderr":
				appendTo(&testCase.Stderr, text)
			case "stdin":
				appendTo(&testCase.Stdin, text)
			case "file":
				body := testCase.Files[file]
				appendTo(&body, text)
				testCase.Files[file] = body
			}
		case !strings.HasPrefix(line, "#"):
			scriptLines = append(scriptLines, line)
		}
	}

	testCase.Script = strings.TrimSpace(strings.Join(scriptLines, "\n"))
	return testCase
}
