package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"vehcat/internal"
)

type Config struct {
	ChunkSize          int
	CacheSizeLimit     int64
	CleanupIntervalSec int
	Workers            int

	MaxParagraphsToSearch int
	MaxTablesToSearch     int
	SkipCountCheck        bool
	LargeFileThresholdMB  int

	NumeralCacheEntries int

	OutputDir string
	DBPath    string

	LogLevel  string
	LogFormat string

	WatchDir         string
	WatchIntervalSec int
	WatchAutoExport  bool

	// Rules replaces the built-in classification rule table when non-empty.
	Rules []RuleConfig
}

type RuleConfig struct {
	Name     string   `yaml:"name"`
	Require  []string `yaml:"require"`
	Exclude  []string `yaml:"exclude"`
	Category string   `yaml:"category"`
	SubType  string   `yaml:"sub_type"`
	// When restricts the rule to tables whose sample values of Column
	// contain the given text.
	When *RuleCondition `yaml:"when"`
}

type RuleCondition struct {
	Column   string `yaml:"column"`
	Contains string `yaml:"contains"`
}

type fileConfig struct {
	Classification struct {
		Rules []RuleConfig `yaml:"rules"`
	} `yaml:"classification"`
}

// Load reads .env, then the YAML file named by VEHCAT_CONFIG (config.yaml
// by default). A missing file is not an error.
func Load() (Config, error) {
	return LoadPath("")
}

// LoadPath is Load with an explicit config file path.
func LoadPath(path string) (Config, error) {
	_ = godotenv.Load()
	if path == "" {
		path = getEnv("VEHCAT_CONFIG", "config.yaml")
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (Config, error) {
	values := map[string]string{}
	var rules []RuleConfig

	blob, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		var tree map[string]any
		if err := yaml.Unmarshal(blob, &tree); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		delete(tree, "classification")
		flatten("", tree, values)

		var fc fileConfig
		if err := yaml.Unmarshal(blob, &fc); err != nil {
			return Config{}, fmt.Errorf("parse rules in %s: %w", path, err)
		}
		rules = fc.Classification.Rules
	}

	for i, r := range rules {
		if strings.TrimSpace(r.Name) == "" {
			return Config{}, fmt.Errorf("classification rule %d: missing name", i+1)
		}
		if len(r.Require) == 0 {
			return Config{}, fmt.Errorf("classification rule %q: empty require list", r.Name)
		}
		if internal.ParseCategory(strings.TrimSpace(r.Category)) == internal.CategoryUnknown {
			return Config{}, fmt.Errorf("classification rule %q: unknown category %q", r.Name, r.Category)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	s := settings(values)
	cfg := Config{
		ChunkSize:          s.int("performance.chunk_size", 1000),
		CacheSizeLimit:     s.int64("performance.cache_size_limit", 50*1024*1024),
		CleanupIntervalSec: s.int("performance.cleanup_interval", 300),
		Workers:            s.int("performance.workers", 0),

		MaxParagraphsToSearch: s.int("document.max_paragraphs_to_search", 30),
		MaxTablesToSearch:     s.int("document.max_tables_to_search", 5),
		SkipCountCheck:        s.bool("document.skip_count_check", false),
		LargeFileThresholdMB:  s.int("document.large_file_threshold", 100),

		NumeralCacheEntries: s.int("numeral.cache_entries", 1024),

		OutputDir: s.str("output.dir", filepath.Join(cwd, "out")),
		DBPath:    s.str("storage.db_path", filepath.Join(cwd, "data", "app.db")),

		LogLevel:  s.str("log.level", "info"),
		LogFormat: s.str("log.format", "text"),

		WatchDir:         s.str("watch.dir", filepath.Join(cwd, "inbox")),
		WatchIntervalSec: s.int("watch.interval", 30),
		WatchAutoExport:  s.bool("watch.auto_export", true),

		Rules: rules,
	}
	return cfg, nil
}

func (c Config) LargeFileThreshold() int64 {
	return int64(c.LargeFileThresholdMB) * 1024 * 1024
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case nil:
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

// settings resolves a dotted key: environment (PERFORMANCE_CHUNK_SIZE)
// first, then the config file, then the fallback.
type settings map[string]string

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (s settings) lookup(key string) string {
	if v := getEnv(envName(key), ""); v != "" {
		return v
	}
	return s[key]
}

func (s settings) str(key, fallback string) string {
	if v := strings.TrimSpace(s.lookup(key)); v != "" {
		return v
	}
	return fallback
}

func (s settings) int(key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(s.lookup(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func (s settings) int64(key string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(s.lookup(key)), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s settings) bool(key string, fallback bool) bool {
	return parseBool(s.lookup(key), fallback)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseBool(value string, fallback bool) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
