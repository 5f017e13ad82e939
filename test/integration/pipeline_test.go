package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousajf1/nushell/internal/config"
	"github.com/sousajf1/nushell/test"
)

const passthru = "name: passthru\nusage: Pass values through\nexec: cat\n"

func TestFormats(t *testing.T) {
	files := map[string]string{
		"data.json":  `{"name": "nu", "tags": ["a", "b"]}`,
		"people.csv": "name,age\nann,31\nbob,42\n",
		"conf.yaml":  "b: 1\na: [x, y]\nc: null\n",
		"conf.toml":  "title = \"x\"\n\n[owner]\nname = \"tom\"\nage = 3\n",
		"data.tsv":   "a;b\n1;2\n",
	}

	tests := []test.TestCase{
		{
			Name:   "json column",
			Script: "open data.json | get name",
			Stdout: "nu",
		},
		{
			Name:   "csv column over rows",
			Script: "open people.csv | get name",
			Stdout: "ann\nbob",
		},
		{
			Name:   "yaml keeps key order",
			Script: "open conf.yaml | to json",
			Stdout: `{"b":1,"a":["x","y"],"c":null}`,
		},
		{
			Name:   "toml tables",
			Script: "open conf.toml | to json",
			Stdout: `{"title":"x","owner":{"name":"tom","age":3}}`,
		},
		{
			Name:   "raw text converted explicitly",
			Script: "open data.tsv --raw | from csv --separator ';' | get b",
			Stdout: "2",
		},
		{
			Name:   "raw open keeps text",
			Script: "open data.json --raw",
			Stdout: `{"name": "nu", "tags": ["a", "b"]}`,
		},
	}

	for _, testCase := range tests {
		testCase.Files = files
		t.Run(testCase.Name, func(t *testing.T) {
			test.RunScriptTest(t, testCase)
		})
	}
}

func TestValueShell(t *testing.T) {
	test.RunScriptTest(t, test.TestCase{
		Name:   "enter a file and walk into it",
		Files:  map[string]string{"data.json": `{"name": "nu", "tags": ["a", "b"]}`},
		Script: "enter data.json\ncd tags\nls\nexit\nopen data.json | get name",
		Stdout: "a\nb\nnu",
	})
}

func TestPlugins(t *testing.T) {
	tests := []test.TestCase{
		{
			Name:   "load plugins from a script",
			Files:  map[string]string{"plugins/nu_plugin_passthru.yaml": passthru},
			Setup:  func(cfg *config.Config, dir string) { cfg.Vars["plugins"] = filepath.Join(dir, "plugins") },
			Script: "load-plugins $plugins\necho 1 two | passthru",
			Stdout: "1\ntwo",
		},
		{
			Name: "plugins loaded at startup",
			Files: map[string]string{
				"plugins/nu_plugin_passthru.yaml": passthru,
				"data.json":                       `{"name": "nu"}`,
			},
			Setup:  func(cfg *config.Config, dir string) { cfg.Plugins.Dirs = []string{filepath.Join(dir, "plugins")} },
			Script: "open data.json | get name | passthru",
			Stdout: "nu",
		},
		{
			Name: "failing plugin is reported",
			Files: map[string]string{
				"plugins/nu_plugin_boom.yaml": "name: boom\nexec: sh\nargs: [\"-c\", \"echo boom >&2; exit 3\"]\n",
			},
			Setup:      func(cfg *config.Config, dir string) { cfg.Plugins.Dirs = []string{filepath.Join(dir, "plugins")} },
			Script:     "echo x | boom",
			ExitCode:   1,
			Stderr:     "Plugin boom failed",
			ShouldFail: true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			test.RunScriptTest(t, testCase)
		})
	}
}

func TestStartupScripts(t *testing.T) {
	test.RunScriptTest(t, test.TestCase{
		Name:  "startup script defines commands",
		Files: map[string]string{"init.nu": "def hello [who] { echo $who }\nlet-env GREETING = hi\n"},
		Setup: func(cfg *config.Config, dir string) {
			cfg.Startup.Scripts = []string{filepath.Join(dir, "init.nu")}
		},
		Script: "hello world\necho $env.GREETING",
		Stdout: "world\nhi",
	})
}

func TestHelpListsCommands(t *testing.T) {
	result := test.Run(t, test.TestCase{Name: "help", Script: "help"})
	require.NoError(t, result.Err)
	for _, name := range []string{"echo", "open", "from json", "load-plugins"} {
		assert.Contains(t, result.Stdout, name)
	}
}

func TestTestDataScripts(t *testing.T) {
	entries, err := os.ReadDir("testdata")
	require.NoError(t, err)

	for _, entry := range entries {
		content, err := test.LoadTestDataFile(entry.Name())
		require.NoError(t, err)
		testCase := test.ParseTestCase(content)
		t.Run(testCase.Name, func(t *testing.T) {
			test.RunScriptTest(t, *testCase)
		})
	}
}
