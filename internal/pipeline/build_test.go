package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetweaver/internal/compress"
	"assetweaver/internal/core"
	"assetweaver/internal/css"
	"assetweaver/internal/scss"
)

func testBuilder(t *testing.T, fs billy.Filesystem) *Builder {
	t.Helper()
	m, err := css.ParseMatrix([]string{"Chrome >= 35", "Explorer >= 10"})
	require.NoError(t, err)
	cache, err := core.NewStageCache(16)
	require.NoError(t, err)
	return &Builder{
		Resolver: core.NewInputResolver(fs),
		Writer:   core.NewWriter(fs),
		Compiler: &BuiltinCompiler{Compiler: scss.NewCompiler(fs)},
		Prefixer: css.NewPrefixer(m, true),
		Minifier: compress.New(),
		Cache:    cache,
		Styles:   StyleOutputs{Dir: "assets/css", Name: "style.css", RTLDir: ".", RTLName: "rtl"},
		Scripts:  ScriptOutputs{Dir: "assets/js", Name: "app.js", MinifiedSuffix: ".min"},
	}
}

func writeFiles(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, fs billy.Filesystem, name string) string {
	t.Helper()
	data, err := util.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}

func runTask(t *testing.T, b *Builder, task core.Task) (*Result, error) {
	t.Helper()
	chain, err := b.Build(task)
	require.NoError(t, err)
	return chain.Run(context.Background(), zerolog.Nop())
}

var (
	sassTask    = core.Task{Name: "sass", Kind: core.KindStyles, Inputs: []string{"src/sass/**/*.scss"}}
	sassDevTask = core.Task{Name: "sass-dev", Kind: core.KindStyles, Variant: core.VariantDevelopment, Inputs: []string{"src/sass/**/*.scss"}}
	jsTask      = core.Task{Name: "js", Kind: core.KindScripts, Inputs: []string{"src/js/*.js"}, Vendor: []string{"vendor/v.js"}}
	jsDevTask   = core.Task{Name: "js-dev", Kind: core.KindScripts, Variant: core.VariantDevelopment, Inputs: []string{"src/js/*.js"}, Vendor: []string{"vendor/v.js"}}
)

func TestScripts_ConcatOrderVendorLast(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"src/js/a.js": "/*A*/",
		"src/js/b.js": "/*B*/",
		"vendor/v.js": "/*V*/",
	})
	b := testBuilder(t, fs)

	res, err := runTask(t, b, jsDevTask)
	require.NoError(t, err)
	assert.Equal(t, "/*A*/\n/*B*/\n/*V*/", readFile(t, fs, "assets/js/app.min.js"))
	assert.Equal(t, []string{"src/js/a.js", "src/js/b.js", "vendor/v.js"}, res.Inputs)
}

func TestScripts_ConcatOrderVendorFirst(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"src/js/a.js": "/*A*/",
		"src/js/b.js": "/*B*/",
		"vendor/v.js": "/*V*/",
	})
	b := testBuilder(t, fs)
	b.Scripts.VendorFirst = true

	_, err := runTask(t, b, jsDevTask)
	require.NoError(t, err)
	assert.Equal(t, "/*V*/\n/*A*/\n/*B*/", readFile(t, fs, "assets/js/app.min.js"))
}

func TestScripts_LintIsAdvisory(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"src/js/a.js": "var a = 1;\nif (a == 2) { a = 3; }\n",
		"vendor/v.js": "if (x == y) {}\n",
	})
	res, err := runTask(t, testBuilder(t, fs), jsTask)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1, "vendor files are never linted")
	assert.Equal(t, "src/js/a.js", res.Findings[0].File)
	assert.Equal(t, 2, res.Findings[0].Line)
	assert.Len(t, res.Artifacts, 1)
}

func TestStyles_RTLVariant(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{"src/sass/x.scss": ".x{margin-left:1px}"})

	res, err := runTask(t, testBuilder(t, fs), sassTask)
	require.NoError(t, err)

	assert.Equal(t, ".x{margin-left:1px}", readFile(t, fs, "assets/css/style.css"))
	assert.Equal(t, ".x{margin-right:1px}", readFile(t, fs, "rtl.css"))
	require.Len(t, res.Artifacts, 2)
	assert.Equal(t, "assets/css/style.css", res.Artifacts[0].Path)
	assert.Equal(t, "rtl.css", res.Artifacts[1].Path)
}

func TestStyles_PartialsHaveNoOutputOfTheirOwn(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"src/sass/_vars.scss": "$c: red;\n.from-partial { color: $c }",
		"src/sass/style.scss": "@import 'vars';\n.main { color: $c }",
	})
	_, err := runTask(t, testBuilder(t, fs), sassTask)
	require.NoError(t, err)
	assert.Equal(t, ".from-partial{color:red}.main{color:red}", readFile(t, fs, "assets/css/style.css"))
}

func TestStyles_CompileErrorWritesNothing(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"src/sass/good.scss":   ".ok { color: red }",
		"src/sass/bad.scss":    ".a {\n  color: $missing;\n}",
		"assets/js/app.min.js": "previous",
	})

	_, err := runTask(t, testBuilder(t, fs), sassTask)
	require.Error(t, err)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "sass", se.Task)
	assert.Equal(t, "compile", se.Stage)
	assert.Equal(t, "src/sass/bad.scss", se.File)
	assert.Equal(t, 2, se.Line)
	assert.Contains(t, se.Error(), "src/sass/bad.scss:2:")

	var cerr *scss.Error
	assert.True(t, errors.As(err, &cerr))

	for _, name := range []string{"assets/css/style.css", "rtl.css"} {
		_, statErr := fs.Stat(name)
		assert.Error(t, statErr, name)
	}
	assert.Equal(t, "previous", readFile(t, fs, "assets/js/app.min.js"))
}

func TestStyles_DevelopmentSourceMap(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"src/sass/a.scss": ".a { color: red; }",
		"src/sass/b.scss": ".b { color: blue; }",
	})
	res, err := runTask(t, testBuilder(t, fs), sassDevTask)
	require.NoError(t, err)

	style := readFile(t, fs, "assets/css/style.css")
	assert.Contains(t, style, ".a {\n  color: red;\n}")
	assert.Contains(t, style, "/*# sourceMappingURL=style.css.map */\n")

	var m sourceMapV3
	require.NoError(t, json.Unmarshal([]byte(readFile(t, fs, "assets/css/style.css.map")), &m))
	assert.Equal(t, 3, m.Version)
	assert.Equal(t, "style.css", m.File)
	assert.Equal(t, []string{"../../src/sass/a.scss", "../../src/sass/b.scss"}, m.Sources)
	require.Len(t, m.SourcesContent, 2)
	assert.Equal(t, ".a { color: red; }", *m.SourcesContent[0])
	assert.Equal(t, ".b { color: blue; }", *m.SourcesContent[1])

	_, statErr := fs.Stat("rtl.css")
	assert.Error(t, statErr, "development builds skip the RTL stylesheet by default")
	assert.Len(t, res.Artifacts, 2)
}

// mappedLines decodes the first segment of every generated line into
// (source index, zero-based source line).
func mappedLines(t *testing.T, mappings string) [][2]int {
	t.Helper()
	var out [][2]int
	src, line := 0, 0
	for _, group := range strings.Split(mappings, ";") {
		fields := decodeVLQ(t, group)
		require.GreaterOrEqual(t, len(fields), 4, group)
		src += fields[1]
		line += fields[2]
		out = append(out, [2]int{src, line})
	}
	return out
}

func decodeVLQ(t *testing.T, s string) []int {
	t.Helper()
	var out []int
	shift, value := 0, 0
	for _, c := range s {
		d := strings.IndexRune(base64Digits, c)
		require.GreaterOrEqual(t, d, 0, s)
		value |= (d & 31) << shift
		if d&32 != 0 {
			shift += 5
			continue
		}
		v := value >> 1
		if value&1 == 1 {
			v = -v
		}
		out = append(out, v)
		shift, value = 0, 0
	}
	return out
}

func TestStyles_SourceMapFollowsSourceLines(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"src/sass/_vars.scss": "$c: red;\n.v {\n  top: 1px;\n}",
		"src/sass/a.scss":     "@import 'vars';\n.a {\n  color: $c;\n\n  b { margin: 0 }\n}",
	})
	_, err := runTask(t, testBuilder(t, fs), sassDevTask)
	require.NoError(t, err)

	style := readFile(t, fs, "assets/css/style.css")
	lines := strings.Split(style, "\n")
	require.Equal(t, ".v {", lines[0])
	require.Equal(t, ".a {", lines[4])
	require.Equal(t, ".a b {", lines[8])

	var m sourceMapV3
	require.NoError(t, json.Unmarshal([]byte(readFile(t, fs, "assets/css/style.css.map")), &m))
	assert.Equal(t, []string{"../../src/sass/_vars.scss", "../../src/sass/a.scss"}, m.Sources)

	got := mappedLines(t, m.Mappings)
	assert.Equal(t, [2]int{0, 1}, got[0], ".v in the partial")
	assert.Equal(t, [2]int{0, 2}, got[1], "top in the partial")
	assert.Equal(t, [2]int{1, 1}, got[4], ".a")
	assert.Equal(t, [2]int{1, 2}, got[5], "color")
	assert.Equal(t, [2]int{1, 4}, got[8], "nested rule")
	assert.Equal(t, [2]int{1, 4}, got[9], "nested declaration")
}

func TestStyles_DevelopmentRTLOption(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{"src/sass/a.scss": ".a { float: left; }"})
	b := testBuilder(t, fs)
	b.Styles.DevRTL = true

	_, err := runTask(t, b, sassDevTask)
	require.NoError(t, err)
	rtl := readFile(t, fs, "rtl.css")
	assert.Equal(t, ".a {\n  float: right;\n}\n", rtl)
}

func TestStyles_PrefixesForMatrix(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{"src/sass/a.scss": ".a { transform: none; }"})
	_, err := runTask(t, testBuilder(t, fs), sassTask)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, fs, "assets/css/style.css"), "-webkit-transform:none")
}

func TestMinifiedNeverLargerThanDevelopment(t *testing.T) {
	sources := map[string]string{
		"src/sass/a.scss": "$gap: 10px;\n.a {\n  margin: $gap;\n  .b { padding: 0px 0px; }\n}\n",
		"src/js/a.js":     "function greet(name) {\n  // say hello\n  return 'hello ' + name;\n}\ngreet('x');\n",
		"vendor/v.js":     "var vendor = true;\n",
	}
	size := func(task core.Task, out string) int {
		fs := memfs.New()
		writeFiles(t, fs, sources)
		_, err := runTask(t, testBuilder(t, fs), task)
		require.NoError(t, err)
		return len(readFile(t, fs, out))
	}

	assert.LessOrEqual(t, size(sassTask, "assets/css/style.css"), size(sassDevTask, "assets/css/style.css"))
	assert.LessOrEqual(t, size(jsTask, "assets/js/app.min.js"), size(jsDevTask, "assets/js/app.min.js"))
}

func TestBuild_StageOrder(t *testing.T) {
	b := testBuilder(t, memfs.New())

	chain, err := b.Build(sassTask)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "compile", "prefix", "concat", "minify", "dest", "rtl", "rename", "dest"}, chain.StageNames())

	chain, err = b.Build(sassDevTask)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "compile", "prefix", "concat", "sourcemap", "dest"}, chain.StageNames())

	chain, err = b.Build(jsTask)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "lint", "addsrc.append", "concat", "rename", "minify", "dest"}, chain.StageNames())

	chain, err = b.Build(core.Task{Name: "default", Kind: core.KindGroup})
	require.NoError(t, err)
	assert.Nil(t, chain)

	_, err = b.Build(core.Task{Name: "odd", Kind: "odd"})
	assert.Error(t, err)
}

func TestPrefix_UsesCache(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{"src/sass/a.scss": ".a { display: flex; }"})
	b := testBuilder(t, fs)

	_, err := runTask(t, b, sassTask)
	require.NoError(t, err)
	entries := b.Cache.Len()
	assert.Positive(t, entries)

	_, err = runTask(t, b, sassTask)
	require.NoError(t, err)
	assert.Equal(t, entries, b.Cache.Len())
}
