package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"assetweaver/internal/core"
)

// Environment overrides.
const (
	EnvOptionSet       = "ASSETWEAVER_OPTION_SET"
	EnvCompiler        = "ASSETWEAVER_COMPILER"
	EnvCompilerCommand = "ASSETWEAVER_COMPILER_COMMAND"
	EnvCacheSize       = "ASSETWEAVER_CACHE_SIZE"
	EnvDevRTL          = "ASSETWEAVER_DEV_RTL"
)

type fileConfig struct {
	OptionSet string `toml:"option_set"`

	StyleSources    []string `toml:"style_sources"`
	StyleOutputDir  string   `toml:"style_output_dir"`
	StyleOutputName string   `toml:"style_output_name"`
	RTLOutputDir    string   `toml:"rtl_output_dir"`
	RTLOutputName   string   `toml:"rtl_output_name"`

	ScriptSources    []string `toml:"script_sources"`
	ScriptOutputDir  string   `toml:"script_output_dir"`
	ScriptOutputName string   `toml:"script_output_name"`

	Compiler        string   `toml:"compiler"`
	CompilerCommand string   `toml:"compiler_command"`
	LoadPaths       []string `toml:"load_paths"`
	CacheSize       int      `toml:"cache_size"`

	OptionSets map[string]fileOptionSet `toml:"option_sets"`
	Watch      []WatchBinding           `toml:"watch"`
	Tasks      []core.Task              `toml:"tasks"`
}

type fileOptionSet struct {
	Version        string   `toml:"version"`
	Browsers       []string `toml:"browsers"`
	VendorScripts  []string `toml:"vendor_scripts"`
	VendorOrder    string   `toml:"vendor_order"`
	DevRTL         bool     `toml:"dev_rtl"`
	Flexbugs       bool     `toml:"flexbugs"`
	MinifiedSuffix string   `toml:"minified_suffix"`
}

// Environment returns a lookup over the process environment backed by the
// .env file in root, if any. Process variables win over .env entries.
func Environment(root string) (func(string) string, error) {
	dotenv, err := godotenv.Read(filepath.Join(root, ".env"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading .env: %w", err)
		}
		dotenv = map[string]string{}
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}, nil
}

// Load builds the configuration for the project at root.
//
// file may be empty, in which case root/assetweaver.toml is used when it
// exists and the built-in defaults otherwise. Keys set in the file replace
// defaults; unknown keys are rejected. Environment overrides are applied
// last, then the result is validated.
func Load(root, file string, getenv func(string) string) (Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("%w: resolving root: %w", ErrInvalidConfig, err)
	}
	cfg := Default()
	cfg.Root = abs

	explicit := file != ""
	if !explicit {
		file = filepath.Join(abs, FileName)
	} else if !filepath.IsAbs(file) {
		file = filepath.Join(abs, file)
	}

	if _, err := os.Stat(file); err == nil {
		if err := decodeFile(&cfg, file); err != nil {
			return Config{}, err
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if getenv != nil {
		if err := applyEnvOverrides(&cfg, getenv); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(cfg *Config, file string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(file, &raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, file, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%w: %s: unknown keys: %s", ErrInvalidConfig, file, strings.Join(keys, ", "))
	}

	setString := func(key string, dst *string, v string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	setList := func(key string, dst *[]string, v []string) {
		if meta.IsDefined(key) {
			*dst = normalizeList(v)
		}
	}

	setString("option_set", &cfg.OptionSetName, raw.OptionSet)
	setList("style_sources", &cfg.StyleSources, raw.StyleSources)
	setString("style_output_dir", &cfg.StyleOutputDir, raw.StyleOutputDir)
	setString("style_output_name", &cfg.StyleOutputName, raw.StyleOutputName)
	setString("rtl_output_dir", &cfg.RTLOutputDir, raw.RTLOutputDir)
	setString("rtl_output_name", &cfg.RTLOutputName, raw.RTLOutputName)
	setList("script_sources", &cfg.ScriptSources, raw.ScriptSources)
	setString("script_output_dir", &cfg.ScriptOutputDir, raw.ScriptOutputDir)
	setString("script_output_name", &cfg.ScriptOutputName, raw.ScriptOutputName)
	setList("load_paths", &cfg.LoadPaths, raw.LoadPaths)
	setString("compiler_command", &cfg.CompilerCommand, raw.CompilerCommand)
	if meta.IsDefined("compiler") {
		cfg.Compiler = CompilerMode(strings.TrimSpace(raw.Compiler))
	}
	if meta.IsDefined("cache_size") {
		cfg.CacheSize = raw.CacheSize
	}

	defaults := Default().Options()
	for name, rawSet := range raw.OptionSets {
		set := OptionSet{
			Version:        strings.TrimSpace(rawSet.Version),
			Browsers:       defaults.Browsers,
			VendorScripts:  defaults.VendorScripts,
			VendorOrder:    VendorOrder(strings.TrimSpace(rawSet.VendorOrder)),
			DevRTL:         rawSet.DevRTL,
			Flexbugs:       defaults.Flexbugs,
			MinifiedSuffix: defaults.MinifiedSuffix,
		}
		if meta.IsDefined("option_sets", name, "browsers") {
			set.Browsers = normalizeList(rawSet.Browsers)
		}
		if meta.IsDefined("option_sets", name, "vendor_scripts") {
			set.VendorScripts = normalizeList(rawSet.VendorScripts)
		}
		if meta.IsDefined("option_sets", name, "flexbugs") {
			set.Flexbugs = rawSet.Flexbugs
		}
		if meta.IsDefined("option_sets", name, "minified_suffix") {
			set.MinifiedSuffix = rawSet.MinifiedSuffix
		}
		cfg.OptionSets[name] = set
	}

	if meta.IsDefined("watch") {
		cfg.Watch = raw.Watch
	}
	if meta.IsDefined("tasks") {
		cfg.Tasks = raw.Tasks
	}
	return nil
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvOptionSet)); v != "" {
		cfg.OptionSetName = v
	}
	if v := strings.TrimSpace(getenv(EnvCompiler)); v != "" {
		cfg.Compiler = CompilerMode(v)
	}
	if v := strings.TrimSpace(getenv(EnvCompilerCommand)); v != "" {
		cfg.CompilerCommand = v
	}
	if v := strings.TrimSpace(getenv(EnvCacheSize)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvCacheSize, v, err)
		}
		cfg.CacheSize = n
	}
	if v := strings.TrimSpace(getenv(EnvDevRTL)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvDevRTL, v, err)
		}
		if set, ok := cfg.OptionSets[cfg.OptionSetName]; ok {
			set.DevRTL = b
			cfg.OptionSets[cfg.OptionSetName] = set
		}
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
