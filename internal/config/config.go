package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName            = "pipecli"
	ConfigFileName     = "config.json"
	LocalFileName      = "config.local.json"
	ProxiesFileName    = "proxies.txt"
	NewsSitesFileName  = "news_sites.yaml"
	DefaultAPIBaseURL  = "http://localhost:8000"
	DefaultIndeedBase  = "https://ca.indeed.com"
	DefaultCountryURL  = "https://restcountries.com/v3/all"
	DefaultEventsTopic = "pipecli.runs"
)

// Config holds every pipeline's settings. Environment variables provide the
// defaults, config.json overrides them and config.local.json overrides both.
type Config struct {
	API       APIConfig         `json:"api"`
	Scrape    ScrapeConfig      `json:"scrape"`
	Indeed    IndeedConfig      `json:"indeed"`
	Reddit    RedditConfig      `json:"reddit"`
	Tickers   TickersConfig     `json:"tickers"`
	Youtube   YoutubeConfig     `json:"youtube"`
	News      NewsConfig        `json:"news"`
	Countries CountriesConfig   `json:"countries"`
	Metrics   MetricsConfig     `json:"metrics"`
	Events    EventsConfig      `json:"events"`
	Schedule  map[string]string `json:"schedule"`
}

type APIConfig struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (c APIConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds)
}

// ScrapeConfig tunes the browser-like client used for HTML pages.
type ScrapeConfig struct {
	TimeoutSeconds  int `json:"timeout_seconds"`
	Retries         int `json:"retries"`
	ProxyBanMinutes int `json:"proxy_ban_minutes"`
}

func (c ScrapeConfig) Timeout() time.Duration {
	return seconds(c.TimeoutSeconds)
}

func (c ScrapeConfig) ProxyBan() time.Duration {
	return time.Duration(c.ProxyBanMinutes) * time.Minute
}

type IndeedConfig struct {
	BaseURL      string  `json:"base_url"`
	Query        string  `json:"query"`
	Location     string  `json:"location"`
	StartPage    int     `json:"start_page"`
	MaxPages     int     `json:"max_pages"`
	DelaySeconds float64 `json:"delay_seconds"`
}

func (c IndeedConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

func (c IndeedConfig) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return errors.New("query is required")
	}
	if c.StartPage < 0 || c.MaxPages < 0 {
		return errors.New("page indexes must not be negative")
	}
	if c.DelaySeconds < 0 {
		return errors.New("delay must not be negative")
	}
	return nil
}

type RedditConfig struct {
	Subreddit    string `json:"subreddit"`
	Period       string `json:"period"`
	Limit        int    `json:"limit"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	UserAgent    string `json:"user_agent"`
}

type TickersConfig struct {
	Subreddit    string   `json:"subreddit"`
	Indexes      []string `json:"indexes"`
	LookbackDays int      `json:"lookback_days"`
}

type ChannelConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type YoutubeConfig struct {
	APIKey   string          `json:"api_key,omitempty"`
	Channels []ChannelConfig `json:"channels"`
}

type NewsConfig struct {
	SitesFile   string `json:"sites_file"`
	MaxArticles int    `json:"max_articles"`
}

type CountriesConfig struct {
	URL string `json:"url"`
}

type MetricsConfig struct {
	ListenAddr     string `json:"listen_addr"`
	PushgatewayURL string `json:"pushgateway_url"`
	Job            string `json:"job"`
}

type EventsConfig struct {
	NATSURL string `json:"nats_url"`
	Subject string `json:"subject"`
}

func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        envString("PIPECLI_API_URL", DefaultAPIBaseURL),
			Token:          envString("PIPECLI_API_TOKEN", ""),
			Username:       envString("PIPECLI_API_USERNAME", ""),
			Password:       envString("PIPECLI_API_PASSWORD", ""),
			TimeoutSeconds: envInt("PIPECLI_API_TIMEOUT", 30),
		},
		Scrape: ScrapeConfig{
			TimeoutSeconds:  envInt("PIPECLI_SCRAPE_TIMEOUT", 30),
			Retries:         envInt("PIPECLI_SCRAPE_RETRIES", 3),
			ProxyBanMinutes: 10,
		},
		Indeed: IndeedConfig{
			BaseURL:      envString("PIPECLI_INDEED_URL", DefaultIndeedBase),
			Query:        envString("PIPECLI_INDEED_QUERY", ""),
			Location:     envString("PIPECLI_INDEED_LOCATION", ""),
			StartPage:    0,
			MaxPages:     envInt("PIPECLI_INDEED_MAX_PAGES", 5),
			DelaySeconds: 5,
		},
		Reddit: RedditConfig{
			Subreddit:    envString("PIPECLI_REDDIT_SUBREDDIT", "wallstreetbets"),
			Period:       "day",
			Limit:        100,
			ClientID:     envString("PIPECLI_REDDIT_CLIENT_ID", ""),
			ClientSecret: envString("PIPECLI_REDDIT_CLIENT_SECRET", ""),
			UserAgent:    envString("PIPECLI_REDDIT_USER_AGENT", "pipecli/1.0 (subreddit etl)"),
		},
		Tickers: TickersConfig{
			Subreddit:    "wallstreetbets",
			Indexes:      []string{"nyse", "nasdaq"},
			LookbackDays: 1,
		},
		Youtube: YoutubeConfig{
			APIKey:   envString("PIPECLI_YOUTUBE_API_KEY", ""),
			Channels: []ChannelConfig{},
		},
		News: NewsConfig{
			MaxArticles: 20,
		},
		Countries: CountriesConfig{
			URL: DefaultCountryURL,
		},
		Metrics: MetricsConfig{
			ListenAddr:     envString("PIPECLI_METRICS_ADDR", ":9108"),
			PushgatewayURL: envString("PIPECLI_PUSHGATEWAY_URL", ""),
			Job:            "pipecli",
		},
		Events: EventsConfig{
			NATSURL: envString("PIPECLI_NATS_URL", ""),
			Subject: DefaultEventsTopic,
		},
		Schedule: map[string]string{
			"indeed":    "0 6 * * *",
			"reddit":    "0 23 * * *",
			"tickers":   "30 23 * * *",
			"youtube":   "0 0 * * *",
			"news":      "0 */6 * * *",
			"countries": "0 3 * * 0",
		},
	}
}

// ConfigDir honours PIPECLI_CONFIG_DIR before the user config directory.
func ConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("PIPECLI_CONFIG_DIR")); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	return inConfigDir(ConfigFileName)
}

func ProxiesPath() (string, error) {
	return inConfigDir(ProxiesFileName)
}

// NewsSitesPath returns the configured site list or the default one in the
// config directory.
func (c Config) NewsSitesPath() (string, error) {
	if strings.TrimSpace(c.News.SitesFile) != "" {
		return c.News.SitesFile, nil
	}
	return inConfigDir(NewsSitesFileName)
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func Load() (Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadDir(dir)
}

// LoadDir reads config.json and config.local.json from dir. Missing files
// leave the defaults in place.
func LoadDir(dir string) (Config, error) {
	cfg := DefaultConfig()

	data, err := readOptional(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return cfg, err
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", ConfigFileName, err)
		}
	}

	local, err := readOptional(filepath.Join(dir, LocalFileName))
	if err != nil {
		return cfg, err
	}
	// Decoding onto cfg keeps keys the local file omits and lets it set
	// explicit zero values such as max_pages: 0.
	if len(local) > 0 {
		if err := json5.Unmarshal(local, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", LocalFileName, err)
		}
	}

	if err := fillBlank(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fillBlank restores defaults for endpoint settings a file left empty. Only
// sections where an empty value is never meaningful are filled.
func fillBlank(cfg *Config) error {
	defaults := DefaultConfig()
	if err := mergo.Merge(&cfg.API, defaults.API); err != nil {
		return err
	}
	if err := mergo.Merge(&cfg.Countries, defaults.Countries); err != nil {
		return err
	}
	if err := mergo.Merge(&cfg.Metrics, defaults.Metrics); err != nil {
		return err
	}
	return mergo.Merge(&cfg.Events, defaults.Events)
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	return data, nil
}

const sampleNewsSites = `# One "name: url" pair per entry.
- Reuters: https://www.reuters.com
- CBC News: https://www.cbc.ca/news
`

// Init writes default config.json, proxies.txt and news_sites.yaml if they
// don't already exist.
func Init() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return InitDir(dir)
}

func InitDir(dir string) ([]string, error) {
	var created []string
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	defaults, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return created, err
	}

	files := []struct {
		name string
		data []byte
		mode os.FileMode
	}{
		{ConfigFileName, append(defaults, '\n'), 0o600},
		{ProxiesFileName, []byte(""), 0o644},
		{NewsSitesFileName, []byte(sampleNewsSites), 0o644},
	}
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, file.data, file.mode); err != nil {
			return created, err
		}
		created = append(created, path)
	}

	return created, nil
}

func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv("PIPECLI_PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := readOptional(path)
	if err != nil {
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
