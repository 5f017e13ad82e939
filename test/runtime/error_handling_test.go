package runtime

import (
	"testing"

	"github.com/sousajf1/nushell/test"
)

func TestErrorHandling(t *testing.T) {
	tests := []test.TestCase{
		{
			Name:       "missing command stops the script",
			Script:     "echo before\nfrobnicate\necho after",
			ExitCode:   1,
			Stdout:     "before",
			Stderr:     "Missing command 'frobnicate'",
			ShouldFail: true,
		},
		{
			Name:     "stage errors are reported and the script continues",
			Files:    map[string]string{"data.json": `{"name": "nu"}`},
			Script:   "echo before\nopen data.json | get size\necho after",
			ExitCode: 1,
			Stdout:   "before\nafter",
			Stderr:   "Unknown column size",
		},
		{
			Name:       "unknown variable",
			Script:     "echo $missing",
			ExitCode:   1,
			Stderr:     "Unknown variable $missing",
			ShouldFail: true,
		},
		{
			Name:       "let without equals",
			Script:     "let y : 5",
			ExitCode:   1,
			Stderr:     "Expected '=' after y",
			ShouldFail: true,
		},
		{
			Name:       "missing file",
			Script:     "open nope.json",
			ExitCode:   1,
			Stderr:     "Can't open file",
			ShouldFail: true,
		},
		{
			Name:       "syntax error",
			Script:     "echo }",
			ExitCode:   1,
			Stderr:     "Parse error",
			ShouldFail: true,
		},
		{
			Name:     "sourcing a missing file is reported",
			Script:   "source missing.nu\necho \"still here\"",
			ExitCode: 1,
			Stdout:   "still here",
			Stderr:   "Can't load file to source",
		},
		{
			Name:     "conversion failure",
			Files:    map[string]string{"bad.json": "{"},
			Script:   "open bad.json\necho next",
			ExitCode: 1,
			Stdout:   "next",
			Stderr:   "Could not parse as json",
		},
		{
			Name:     "errors in the loop do not end it",
			Stdin:    "nope\necho recovered",
			ExitCode: 1,
			Stdout:   "recovered",
			Stderr:   "Missing command 'nope'",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			test.RunScriptTest(t, testCase)
		})
	}
}
