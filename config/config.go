package config

import (
	"fmt"
	"galmirror/oops"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env        Env           `yaml:"-"`
	ListenAddr string        `yaml:"listen_addr"`
	LogLevel   string        `yaml:"log_level"`
	Http       HttpConfig    `yaml:"http"`
	Cache      CacheConfig   `yaml:"cache"`
	Ranking    RankingConfig `yaml:"ranking"`
	Related    RelatedConfig `yaml:"related"`
	IndexLimit int           `yaml:"index_limit"`

	// Upper bound on listing pages one board request may read
	MaxScanPages int `yaml:"max_scan_pages"`
}

type HttpConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MediaCacheMaxAge  time.Duration `yaml:"media_cache_max_age"`
	MaxCommentPages   int           `yaml:"max_comment_pages"`
	MaxContentLengthB int           `yaml:"max_content_length"`
}

type CacheConfig struct {
	LatestIdTTL   time.Duration `yaml:"latest_id_ttl"`
	RelatedTTL    time.Duration `yaml:"related_ttl"`
	AuthorCodeTTL time.Duration `yaml:"author_code_ttl"`
}

type RankingConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	File            string        `yaml:"file"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	MaxItems        int           `yaml:"max_items"`
}

type RelatedConfig struct {
	ItemsPerPage int `yaml:"items_per_page"`
	SeekSteps    int `yaml:"seek_steps"`
	TailPages    int `yaml:"tail_pages"`
}

type Env int

const (
	EnvDevelopment Env = iota
	EnvTesting
	EnvProduction
)

func (e Env) IsDevOrTest() bool {
	return e == EnvDevelopment || e == EnvTesting
}

func (e Env) String() string {
	switch e {
	case EnvDevelopment:
		return "development"
	case EnvTesting:
		return "testing"
	case EnvProduction:
		return "production"
	default:
		return fmt.Sprintf("Env(%d)", int(e))
	}
}

const envPrefix = "MIRROR_"

// Load builds the config in layers: defaults, then the YAML file named by MIRROR_CONFIG_FILE,
// then .env files, then MIRROR_* variables.
func Load() (Config, error) {
	LoadDotEnv()

	env := EnvDevelopment
	switch strings.ToLower(os.Getenv(envPrefix + "ENV")) {
	case "", "development", "dev":
	case "testing", "test":
		env = EnvTesting
	case "production", "prod":
		env = EnvProduction
	default:
		return Config{}, oops.Newf("unknown %sENV: %q", envPrefix, os.Getenv(envPrefix+"ENV"))
	}

	cfg := Defaults()
	cfg.Env = env
	if env == EnvDevelopment {
		cfg.LogLevel = "debug"
	}

	if path, ok := os.LookupEnv(envPrefix + "CONFIG_FILE"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, oops.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, oops.Wrapf(err, "parse config file %s", path)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Defaults() Config {
	return Config{
		Env:        EnvProduction,
		ListenAddr: ":3000",
		LogLevel:   "info",
		Http: HttpConfig{
			Timeout:           20 * time.Second,
			MediaCacheMaxAge:  24 * time.Hour,
			MaxCommentPages:   50,
			MaxContentLengthB: 20 * 1024 * 1024,
		},
		Cache: CacheConfig{
			LatestIdTTL:   20 * time.Second,
			RelatedTTL:    90 * time.Second,
			AuthorCodeTTL: 10 * time.Minute,
		},
		Ranking: RankingConfig{
			TTL:             time.Hour,
			File:            "heung_gallery_ranking.json",
			RefreshInterval: 0,
			MaxItems:        300,
		},
		Related: RelatedConfig{
			ItemsPerPage: 200,
			SeekSteps:    8,
			TailPages:    3,
		},
		IndexLimit:   31,
		MaxScanPages: 5,
	}
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if value, ok := lookup(envPrefix + name); ok && value != "" {
			*dst = value
		}
	}
	dur := func(name string, dst *time.Duration) error {
		value, ok := lookup(envPrefix + name)
		if !ok || value == "" {
			return nil
		}
		parsed, err := parseDuration(value)
		if err != nil {
			return oops.Wrapf(err, "%s%s", envPrefix, name)
		}
		*dst = parsed
		return nil
	}
	num := func(name string, dst *int) error {
		value, ok := lookup(envPrefix + name)
		if !ok || value == "" {
			return nil
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return oops.Wrapf(err, "%s%s", envPrefix, name)
		}
		*dst = parsed
		return nil
	}

	str("LISTEN_ADDR", &cfg.ListenAddr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("RANKING_FILE", &cfg.Ranking.File)

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.Http.Timeout},
		{"MEDIA_CACHE_MAX_AGE", &cfg.Http.MediaCacheMaxAge},
		{"LATEST_ID_TTL", &cfg.Cache.LatestIdTTL},
		{"RELATED_TTL", &cfg.Cache.RelatedTTL},
		{"AUTHOR_CODE_TTL", &cfg.Cache.AuthorCodeTTL},
		{"RANKING_TTL", &cfg.Ranking.TTL},
		{"RANKING_REFRESH_INTERVAL", &cfg.Ranking.RefreshInterval},
	}
	for _, d := range durations {
		if err := dur(d.name, d.dst); err != nil {
			return err
		}
	}

	numbers := []struct {
		name string
		dst  *int
	}{
		{"MAX_COMMENT_PAGES", &cfg.Http.MaxCommentPages},
		{"MAX_CONTENT_LENGTH", &cfg.Http.MaxContentLengthB},
		{"RANKING_MAX_ITEMS", &cfg.Ranking.MaxItems},
		{"ITEMS_PER_PAGE", &cfg.Related.ItemsPerPage},
		{"SEEK_STEPS", &cfg.Related.SeekSteps},
		{"TAIL_PAGES", &cfg.Related.TailPages},
		{"INDEX_LIMIT", &cfg.IndexLimit},
		{"MAX_SCAN_PAGES", &cfg.MaxScanPages},
	}
	for _, n := range numbers {
		if err := num(n.name, n.dst); err != nil {
			return err
		}
	}
	return nil
}

// Bare integers are seconds
func parseDuration(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func (c Config) validate() error {
	if c.Http.Timeout <= 0 {
		return oops.New("http timeout must be positive")
	}
	if c.Related.ItemsPerPage <= 0 {
		return oops.New("items per page must be positive")
	}
	if c.Related.SeekSteps <= 0 || c.Related.TailPages < 0 {
		return oops.Newf(
			"invalid related budgets: seek steps %d, tail pages %d",
			c.Related.SeekSteps, c.Related.TailPages,
		)
	}
	if c.IndexLimit <= 0 {
		return oops.New("index limit must be positive")
	}
	if c.MaxScanPages <= 0 {
		return oops.New("max scan pages must be positive")
	}
	if c.Ranking.File == "" {
		return oops.New("ranking file path is empty")
	}
	return nil
}
