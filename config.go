package vtx

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/vtx/internal/browser"
	"github.com/hazyhaar/vtx/internal/discover"
	"github.com/hazyhaar/vtx/internal/schedule"
	"github.com/hazyhaar/vtx/internal/transcript"
)

// Config is the top-level vtx configuration. The zero value plus an entry
// URL is a working run; everything else has defaults.
type Config struct {
	// EntryURL is what the run extracts: a watch URL, a channel/user/handle
	// URL, or any other listing URL.
	EntryURL string `yaml:"entry_url"`

	// OutputDir receives transcript files and the summary manifest.
	// Default: "transcripts".
	OutputDir string `yaml:"output_dir"`

	// Concurrency caps simultaneously processed videos. Default: 5.
	Concurrency int `yaml:"concurrency"`

	// HistoryDB is the path of the SQLite run history. Empty = no history.
	HistoryDB string `yaml:"history_db"`

	// KeepRuns prunes the history to the newest N runs after each run.
	// 0 = keep everything.
	KeepRuns int `yaml:"keep_runs"`

	Browser   BrowserConfig   `yaml:"browser"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Fetch     FetchConfig     `yaml:"fetch"`
}

// BrowserConfig controls the Chrome lifecycle.
type BrowserConfig struct {
	Remote         string   `yaml:"remote"`
	ChromePath     string   `yaml:"chrome_path"`
	Headful        bool     `yaml:"headful"`
	UserAgent      string   `yaml:"user_agent"`
	WindowWidth    int      `yaml:"window_width"`
	WindowHeight   int      `yaml:"window_height"`
	BlockResources []string `yaml:"block_resources"`
}

// DiscoveryConfig tunes listing pagination. Zero values fall back to the
// discoverer's defaults.
type DiscoveryConfig struct {
	NavTimeout     time.Duration `yaml:"nav_timeout"`
	InitialSettle  time.Duration `yaml:"initial_settle"`
	ScrollDelay    time.Duration `yaml:"scroll_delay"`
	FinalSettle    time.Duration `yaml:"final_settle"`
	MaxPatience    int           `yaml:"max_patience"`
	MaxCycles      int           `yaml:"max_cycles"`
	ConsentTimeout time.Duration `yaml:"consent_timeout"`
	ConsentSettle  time.Duration `yaml:"consent_settle"`
}

// FetchConfig tunes per-video transcript extraction. Zero values fall back
// to the fetcher's defaults.
type FetchConfig struct {
	NavTimeout     time.Duration `yaml:"nav_timeout"`
	PlayerTimeout  time.Duration `yaml:"player_timeout"`
	ExpandTimeout  time.Duration `yaml:"expand_timeout"`
	ExpandSettle   time.Duration `yaml:"expand_settle"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
	PanelTimeout   time.Duration `yaml:"panel_timeout"`
	PanelRecheck   time.Duration `yaml:"panel_recheck"`
	SegmentsSettle time.Duration `yaml:"segments_settle"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "transcripts"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = schedule.DefaultLimit
	}
}

func (c *Config) browserConfig(log *slog.Logger) browser.Config {
	return browser.Config{
		RemoteURL:      c.Browser.Remote,
		ChromePath:     c.Browser.ChromePath,
		Headful:        c.Browser.Headful,
		UserAgent:      c.Browser.UserAgent,
		WindowWidth:    c.Browser.WindowWidth,
		WindowHeight:   c.Browser.WindowHeight,
		BlockResources: c.Browser.BlockResources,
		Logger:         log,
	}
}

func (c *Config) discoverConfig(log *slog.Logger) discover.Config {
	return discover.Config{
		NavTimeout:     c.Discovery.NavTimeout,
		InitialSettle:  c.Discovery.InitialSettle,
		ScrollDelay:    c.Discovery.ScrollDelay,
		FinalSettle:    c.Discovery.FinalSettle,
		MaxPatience:    c.Discovery.MaxPatience,
		MaxCycles:      c.Discovery.MaxCycles,
		ConsentTimeout: c.Discovery.ConsentTimeout,
		ConsentSettle:  c.Discovery.ConsentSettle,
		Logger:         log,
	}
}

func (c *Config) fetchConfig(log *slog.Logger) transcript.Config {
	return transcript.Config{
		NavTimeout:     c.Fetch.NavTimeout,
		PlayerTimeout:  c.Fetch.PlayerTimeout,
		ExpandTimeout:  c.Fetch.ExpandTimeout,
		ExpandSettle:   c.Fetch.ExpandSettle,
		OpenTimeout:    c.Fetch.OpenTimeout,
		PanelTimeout:   c.Fetch.PanelTimeout,
		PanelRecheck:   c.Fetch.PanelRecheck,
		SegmentsSettle: c.Fetch.SegmentsSettle,
		PollInterval:   c.Fetch.PollInterval,
		Logger:         log,
	}
}
