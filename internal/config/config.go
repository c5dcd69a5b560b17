// Package config loads the immutable project configuration: source sets,
// output locations, option sets, watch bindings and the declared tasks.
package config

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"assetweaver/internal/core"
	"assetweaver/internal/css"
)

// FileName is the configuration file looked up in the work dir.
const FileName = "assetweaver.toml"

// ErrInvalidConfig is matched by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// VendorOrder places vendor scripts relative to first-party scripts.
type VendorOrder string

const (
	VendorFirst VendorOrder = "vendor-first"
	VendorLast  VendorOrder = "vendor-last"
)

// CompilerMode selects the stylesheet compiler.
type CompilerMode string

const (
	CompilerBuiltin CompilerMode = "builtin"
	CompilerCommand CompilerMode = "command"
)

// OptionSet is a named, versioned group of build options.
type OptionSet struct {
	Version        string
	Browsers       []string
	VendorScripts  []string
	VendorOrder    VendorOrder
	DevRTL         bool
	Flexbugs       bool
	MinifiedSuffix string
}

// WatchBinding triggers Tasks when a file matching Pattern changes.
type WatchBinding struct {
	Pattern string   `toml:"pattern"`
	Tasks   []string `toml:"tasks"`
}

// Config is built once per process and never mutated afterwards.
type Config struct {
	// Root is the absolute project directory. It is not read from the file.
	Root string

	OptionSetName string
	OptionSets    map[string]OptionSet

	StyleSources    []string
	StyleOutputDir  string
	StyleOutputName string
	RTLOutputDir    string
	RTLOutputName   string

	ScriptSources    []string
	ScriptOutputDir  string
	ScriptOutputName string

	Compiler        CompilerMode
	CompilerCommand string
	LoadPaths       []string

	// CacheSize bounds the stage cache in entries.
	CacheSize int

	Watch []WatchBinding

	// Tasks are the declared tasks, in declaration order.
	Tasks []core.Task
}

// Default reproduces the stock theme build.
func Default() Config {
	return Config{
		OptionSetName: "default",
		OptionSets: map[string]OptionSet{
			"default": {
				Version: "1.0.0",
				Browsers: []string{
					"Chrome >= 35",
					"Firefox >= 38",
					"Edge >= 12",
					"Explorer >= 10",
					"iOS >= 8",
					"Safari >= 8",
					"Android 2.3",
					"Android >= 4",
					"Opera >= 12",
				},
				VendorScripts: []string{
					"node_modules/jquery/dist/jquery.min.js",
					"node_modules/owl.carousel/dist/owl.carousel.min.js",
					"node_modules/tether/dist/js/tether.min.js",
					"node_modules/bootstrap/dist/js/bootstrap.min.js",
				},
				VendorOrder:    VendorLast,
				Flexbugs:       true,
				MinifiedSuffix: ".min",
			},
		},
		StyleSources: []string{
			"src/sass/**/*.scss",
			"node_modules/owl.carousel/dist/assets/owl.carousel.min.css",
			"node_modules/owl.carousel/dist/assets/owl.theme.default.min.css",
			"node_modules/tether/dist/css/tether.min.css",
		},
		StyleOutputDir:   "assets/css",
		StyleOutputName:  "style.css",
		RTLOutputDir:     ".",
		RTLOutputName:    "rtl",
		ScriptSources:    []string{"src/js/*.js"},
		ScriptOutputDir:  "assets/js",
		ScriptOutputName: "app.js",
		Compiler:         CompilerBuiltin,
		CacheSize:        256,
		Watch: []WatchBinding{
			{Pattern: "src/sass/**/*.scss", Tasks: []string{"sass-dev"}},
			{Pattern: "src/js/*.js", Tasks: []string{"js-dev"}},
		},
		Tasks: DefaultTasks(),
	}
}

// DefaultTasks returns the stock task declarations.
func DefaultTasks() []core.Task {
	return []core.Task{
		{Name: "sass", Kind: core.KindStyles, Variant: core.VariantProduction},
		{Name: "sass-dev", Kind: core.KindStyles, Variant: core.VariantDevelopment},
		{Name: "js", Kind: core.KindScripts, Variant: core.VariantProduction},
		{Name: "js-dev", Kind: core.KindScripts, Variant: core.VariantDevelopment},
		{Name: "watch", Kind: core.KindWatch, Prerequisites: []string{"sass-dev", "js-dev"}},
		{Name: "default", Kind: core.KindGroup, Prerequisites: []string{"sass", "js"}},
	}
}

// Options returns the selected option set.
func (c Config) Options() OptionSet {
	return c.OptionSets[c.OptionSetName]
}

// Matrix parses the selected option set's browser list.
func (c Config) Matrix() (*css.Matrix, error) {
	return css.ParseMatrix(c.Options().Browsers)
}

// StyleOutput is the project-relative path of the stylesheet bundle.
func (c Config) StyleOutput() string {
	return path.Join(c.StyleOutputDir, c.StyleOutputName)
}

// RTLOutput is the project-relative path of the right-to-left stylesheet.
func (c Config) RTLOutput() string {
	return path.Join(c.RTLOutputDir, c.RTLOutputName+path.Ext(c.StyleOutputName))
}

// ScriptOutput is the project-relative path of the script bundle.
func (c Config) ScriptOutput() string {
	ext := path.Ext(c.ScriptOutputName)
	base := strings.TrimSuffix(c.ScriptOutputName, ext)
	return path.Join(c.ScriptOutputDir, base+c.Options().MinifiedSuffix+ext)
}

// ResolvedTasks returns the declared tasks with their source sets and
// outputs filled in from the configuration.
func (c Config) ResolvedTasks() []core.Task {
	opts := c.Options()
	out := make([]core.Task, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		t.Prerequisites = append([]string(nil), t.Prerequisites...)
		switch t.Kind {
		case core.KindStyles:
			t.Inputs = append([]string(nil), c.StyleSources...)
			t.Outputs = []string{c.StyleOutput()}
			dev := t.EffectiveVariant() == core.VariantDevelopment
			if dev {
				t.Outputs = append(t.Outputs, c.StyleOutput()+".map")
			}
			if !dev || opts.DevRTL {
				t.Outputs = append(t.Outputs, c.RTLOutput())
			}
		case core.KindScripts:
			t.Inputs = append([]string(nil), c.ScriptSources...)
			t.Vendor = append([]string(nil), opts.VendorScripts...)
			t.Outputs = []string{c.ScriptOutput()}
		}
		out = append(out, t)
	}
	return out
}

// WatchTargets returns the watch bindings.
func (c Config) WatchTargets() []WatchBinding {
	out := make([]WatchBinding, len(c.Watch))
	copy(out, c.Watch)
	return out
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(c.OptionSets) == 0 {
		fail("no option sets declared")
	}
	names := make([]string, 0, len(c.OptionSets))
	for name := range c.OptionSets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := validateOptionSet(c.OptionSets[name]); err != nil {
			fail("option set %q: %w", name, err)
		}
	}
	if _, ok := c.OptionSets[c.OptionSetName]; !ok {
		fail("option_set %q is not declared", c.OptionSetName)
	}

	for _, f := range []struct {
		key      string
		patterns []string
	}{
		{"style_sources", c.StyleSources},
		{"script_sources", c.ScriptSources},
	} {
		if len(f.patterns) == 0 {
			fail("%s must not be empty", f.key)
		}
		if _, err := core.CompilePatterns(f.patterns); err != nil {
			fail("%s: %w", f.key, err)
		}
	}
	for _, f := range []struct {
		key   string
		value string
		file  bool
	}{
		{"style_output_dir", c.StyleOutputDir, false},
		{"style_output_name", c.StyleOutputName, true},
		{"rtl_output_dir", c.RTLOutputDir, false},
		{"rtl_output_name", c.RTLOutputName, true},
		{"script_output_dir", c.ScriptOutputDir, false},
		{"script_output_name", c.ScriptOutputName, true},
	} {
		switch {
		case strings.TrimSpace(f.value) == "":
			fail("%s must not be empty", f.key)
		case f.file && strings.ContainsRune(f.value, '/'):
			fail("%s must be a file name, got %q", f.key, f.value)
		case !f.file && (path.IsAbs(f.value) || strings.HasPrefix(path.Clean(f.value), "..")):
			fail("%s must stay inside the project, got %q", f.key, f.value)
		}
	}

	switch c.Compiler {
	case CompilerBuiltin:
	case CompilerCommand:
		if strings.TrimSpace(c.CompilerCommand) == "" {
			fail("compiler_command is required when compiler = %q", CompilerCommand)
		}
	default:
		fail("compiler must be %q or %q, got %q", CompilerBuiltin, CompilerCommand, c.Compiler)
	}
	if c.CacheSize < 0 {
		fail("cache_size must not be negative")
	}

	declared := make(map[string]core.Kind, len(c.Tasks))
	for _, t := range c.Tasks {
		declared[t.Name] = t.Kind
		switch t.Variant {
		case "", core.VariantProduction, core.VariantDevelopment:
		default:
			fail("task %q: unknown variant %q", t.Name, t.Variant)
		}
	}
	for i, w := range c.Watch {
		p, err := core.CompilePattern(w.Pattern)
		if err != nil {
			fail("watch[%d]: %w", i, err)
		} else if p.Negated() {
			fail("watch[%d]: pattern %q cannot be negated", i, w.Pattern)
		}
		if len(w.Tasks) == 0 {
			fail("watch[%d]: tasks must not be empty", i)
		}
		for _, name := range w.Tasks {
			kind, ok := declared[name]
			if !ok {
				fail("watch[%d]: unknown task %q", i, name)
			} else if kind == core.KindWatch {
				fail("watch[%d]: task %q is itself a watch task", i, name)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func validateOptionSet(s OptionSet) error {
	if s.Version == "" {
		return errors.New("version is required")
	}
	if _, err := semver.NewVersion(s.Version); err != nil {
		return fmt.Errorf("version %q: %w", s.Version, err)
	}
	switch s.VendorOrder {
	case VendorFirst, VendorLast:
	case "":
		return fmt.Errorf("vendor_order is required (%q or %q)", VendorFirst, VendorLast)
	default:
		return fmt.Errorf("vendor_order must be %q or %q, got %q", VendorFirst, VendorLast, s.VendorOrder)
	}
	if _, err := css.ParseMatrix(s.Browsers); err != nil {
		return fmt.Errorf("browsers: %w", err)
	}
	if _, err := core.CompilePatterns(s.VendorScripts); err != nil {
		return fmt.Errorf("vendor_scripts: %w", err)
	}
	if strings.ContainsRune(s.MinifiedSuffix, '/') {
		return fmt.Errorf("minified_suffix %q must not contain '/'", s.MinifiedSuffix)
	}
	return nil
}
