// Package config loads resolver settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFile = "config.yaml"

type Config struct {
	YtDlpPath    string `yaml:"ytdlp_path"`
	CookiesDir   string `yaml:"cookies_dir"`
	DownloadsDir string `yaml:"downloads_dir"`

	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
	LogMaxSizeMB int    `yaml:"log_max_size_mb"`
	LogBackups   int    `yaml:"log_backups"`

	SearchTimeout   time.Duration `yaml:"search_timeout"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	YouTubeAPIKey    string `yaml:"youtube_api_key"`
	YouTubeSearchURL string `yaml:"youtube_search_url"`

	RedisURL string        `yaml:"redis_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	ListenAddr string `yaml:"listen_addr"`
}

func Default() Config {
	return Config{
		YtDlpPath:        "yt-dlp",
		CookiesDir:       "cookies",
		DownloadsDir:     "downloads",
		LogFile:          "log.txt",
		LogLevel:         "info",
		LogMaxSizeMB:     5,
		LogBackups:       10,
		SearchTimeout:    15 * time.Second,
		ProbeTimeout:     2 * time.Minute,
		DownloadTimeout:  30 * time.Minute,
		YouTubeSearchURL: "https://www.googleapis.com/youtube/v3/search",
		CacheTTL:         time.Hour,
		ListenAddr:       ":3007",
	}
}

// Load reads path (a missing default file is not an error) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("error reading config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("YTR_YTDLP_PATH", &c.YtDlpPath)
	str("YTR_COOKIES_DIR", &c.CookiesDir)
	str("YTR_DOWNLOADS_DIR", &c.DownloadsDir)
	str("YTR_LOG_FILE", &c.LogFile)
	str("YTR_LOG_LEVEL", &c.LogLevel)
	str("YTR_LISTEN_ADDR", &c.ListenAddr)
	str("YOUTUBE_API_KEY", &c.YouTubeAPIKey)
	str("YOUTUBE_SEARCH_URL", &c.YouTubeSearchURL)
	str("REDIS_URL", &c.RedisURL)

	for key, dst := range map[string]*int{
		"YTR_LOG_MAX_SIZE_MB": &c.LogMaxSizeMB,
		"YTR_LOG_BACKUPS":     &c.LogBackups,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*time.Duration{
		"YTR_SEARCH_TIMEOUT":   &c.SearchTimeout,
		"YTR_PROBE_TIMEOUT":    &c.ProbeTimeout,
		"YTR_DOWNLOAD_TIMEOUT": &c.DownloadTimeout,
		"YTR_CACHE_TTL":        &c.CacheTTL,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}
