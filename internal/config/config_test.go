package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetweaver/internal/core"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(body), 0o644))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root, "", noEnv)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "default", cfg.OptionSetName)
	assert.Equal(t, VendorLast, cfg.Options().VendorOrder)
	assert.False(t, cfg.Options().DevRTL)
	assert.True(t, cfg.Options().Flexbugs)
	assert.Equal(t, "assets/css/style.css", cfg.StyleOutput())
	assert.Equal(t, "rtl.css", cfg.RTLOutput())
	assert.Equal(t, "assets/js/app.min.js", cfg.ScriptOutput())
	assert.Len(t, cfg.Options().Browsers, 9)

	m, err := cfg.Matrix()
	require.NoError(t, err)
	assert.Equal(t, cfg.Options().Browsers, m.Queries())
}

func TestResolvedTasks_FillsSourcesAndOutputs(t *testing.T) {
	cfg := Default()
	tasks := cfg.ResolvedTasks()
	byName := map[string]core.Task{}
	for _, tk := range tasks {
		byName[tk.Name] = tk
	}

	assert.Equal(t, []string{"sass", "sass-dev", "js", "js-dev", "watch", "default"}, names(tasks))
	assert.Equal(t, cfg.StyleSources, byName["sass"].Inputs)
	assert.Equal(t, []string{"assets/css/style.css", "rtl.css"}, byName["sass"].Outputs)
	assert.Equal(t, []string{"assets/css/style.css", "assets/css/style.css.map"}, byName["sass-dev"].Outputs)
	assert.Equal(t, cfg.Options().VendorScripts, byName["js"].Vendor)
	assert.Equal(t, []string{"assets/js/app.min.js"}, byName["js-dev"].Outputs)
	assert.Equal(t, []string{"sass-dev", "js-dev"}, byName["watch"].Prerequisites)
	assert.Empty(t, byName["default"].Inputs)

	// Mutating the result leaves the configuration untouched.
	byName["watch"].Prerequisites[0] = "x"
	assert.Equal(t, "sass-dev", cfg.Tasks[4].Prerequisites[0])
}

func names(tasks []core.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name)
	}
	return out
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
option_set = "theme"
style_output_name = "main.css"
script_sources = ["src/scripts/**/*.js"]

[option_sets.theme]
version = "2.1.0"
browsers = ["Chrome >= 60"]
vendor_scripts = ["vendor/a.js"]
vendor_order = "vendor-first"
dev_rtl = true
minified_suffix = "-min"

[[watch]]
pattern = "src/scripts/**/*.js"
tasks = ["js-dev"]
`)
	cfg, err := Load(root, "", noEnv)
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, "2.1.0", opts.Version)
	assert.Equal(t, []string{"Chrome >= 60"}, opts.Browsers)
	assert.Equal(t, VendorFirst, opts.VendorOrder)
	assert.True(t, opts.DevRTL)
	assert.True(t, opts.Flexbugs, "flexbugs keeps its default when unset")
	assert.Equal(t, "assets/js/app-min.js", cfg.ScriptOutput())
	assert.Equal(t, "assets/css/main.css", cfg.StyleOutput())
	assert.Equal(t, []string{"src/scripts/**/*.js"}, cfg.ScriptSources)
	assert.Equal(t, []WatchBinding{{Pattern: "src/scripts/**/*.js", Tasks: []string{"js-dev"}}}, cfg.WatchTargets())
	assert.Len(t, cfg.Tasks, 6)

	// The built-in set stays available.
	_, ok := cfg.OptionSets["default"]
	assert.True(t, ok)
}

func TestLoad_DeclaredTasksReplaceDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[[tasks]]
name = "css"
kind = "styles"

[[tasks]]
name = "all"
kind = "group"
prerequisites = ["css"]

[[watch]]
pattern = "src/sass/**/*.scss"
tasks = ["css"]
`)
	cfg, err := Load(root, "", noEnv)
	require.NoError(t, err)
	require.Len(t, cfg.Tasks, 2)
	assert.Equal(t, core.KindGroup, cfg.Tasks[1].Kind)
	assert.Equal(t, core.VariantProduction, cfg.Tasks[0].EffectiveVariant())
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "style_output = \"x.css\"\n")
	_, err := Load(root, "", noEnv)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "style_output")
}

func TestLoad_OptionSetRequiresVendorOrder(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
option_set = "theme"
[option_sets.theme]
version = "1.0.0"
`)
	_, err := Load(root, "", noEnv)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "vendor_order is required")
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"bad version":        "[option_sets.default]\nversion = \"one\"\nvendor_order = \"vendor-last\"\n",
		"bad browser":        "[option_sets.default]\nversion = \"1.0.0\"\nvendor_order = \"vendor-last\"\nbrowsers = [\"Netscape >= 4\"]\n",
		"undeclared set":     "option_set = \"nope\"\n",
		"command missing":    "compiler = \"command\"\n",
		"unknown compiler":   "compiler = \"sassc\"\n",
		"watch unknown":      "[[watch]]\npattern = \"src/*.js\"\ntasks = [\"lint\"]\n",
		"output escapes":     "style_output_dir = \"../elsewhere\"\n",
		"name with slash":    "script_output_name = \"js/app.js\"\n",
		"empty sources":      "style_sources = []\n",
		"negated watch":      "[[watch]]\npattern = \"!src/*.js\"\ntasks = [\"js\"]\n",
		"malformed toml":     "option_set = \n",
		"unknown variant":    "[[tasks]]\nname = \"x\"\nkind = \"styles\"\nvariant = \"staging\"\n[[watch]]\npattern = \"a/*.css\"\ntasks = [\"x\"]\n",
		"watch of watch":     "[[watch]]\npattern = \"src/*.js\"\ntasks = [\"watch\"]\n",
		"negative cache":     "cache_size = -1\n",
		"bad vendor order":   "[option_sets.default]\nversion = \"1.0.0\"\nvendor_order = \"middle\"\n",
		"slash in suffix":    "[option_sets.default]\nversion = \"1.0.0\"\nvendor_order = \"vendor-last\"\nminified_suffix = \"/min\"\n",
		"task input in toml": "[[tasks]]\nname = \"x\"\nkind = \"styles\"\ninputs = [\"a\"]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, body)
			_, err := Load(root, "", noEnv)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(t.TempDir(), "missing.toml", noEnv)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	env := map[string]string{
		EnvCompiler:        "command",
		EnvCompilerCommand: "sassc --stdin",
		EnvCacheSize:       "16",
		EnvDevRTL:          "true",
	}
	cfg, err := Load(root, "", func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, CompilerCommand, cfg.Compiler)
	assert.Equal(t, "sassc --stdin", cfg.CompilerCommand)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.True(t, cfg.Options().DevRTL)
	assert.Contains(t, cfg.ResolvedTasks()[1].Outputs, "rtl.css")

	env[EnvCacheSize] = "many"
	_, err = Load(root, "", func(k string) string { return env[k] })
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEnvironment_ReadsDotEnvAndPrefersProcess(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"),
		[]byte("ASSETWEAVER_OPTION_SET=dotenv\nASSETWEAVER_TEST_ONLY_PROCESS=dotenv\n"), 0o644))
	t.Setenv("ASSETWEAVER_TEST_ONLY_PROCESS", "process")

	getenv, err := Environment(root)
	require.NoError(t, err)
	assert.Equal(t, "process", getenv("ASSETWEAVER_TEST_ONLY_PROCESS"))
	if _, set := os.LookupEnv(EnvOptionSet); !set {
		assert.Equal(t, "dotenv", getenv(EnvOptionSet))
	}

	getenv, err = Environment(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", getenv("ASSETWEAVER_NOT_SET_ANYWHERE"))
}
