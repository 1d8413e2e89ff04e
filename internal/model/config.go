package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Dispatch    DispatchConfig    `yaml:"dispatch" mapstructure:"dispatch"`
	Resolver    ResolverConfig    `yaml:"resolver" mapstructure:"resolver"`
	Citations   CitationConfig    `yaml:"citations" mapstructure:"citations"`
	Authority   AuthorityConfig   `yaml:"authority" mapstructure:"authority"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls page fetching for URL analysis
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// FetchConfig controls the privileged (credentialed) media fetcher
type FetchConfig struct {
	Timeout        time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	MaxMediaBytes  int64             `yaml:"max_media_bytes" mapstructure:"max_media_bytes"`
	RatePerSecond  float64           `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst          int               `yaml:"burst" mapstructure:"burst"`
	CacheTTL       time.Duration     `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheDir       string            `yaml:"cache_dir" mapstructure:"cache_dir"`
	Credentials    map[string]string `yaml:"credentials,omitempty" mapstructure:"credentials"` // host -> Cookie header
	AnalysisServer string            `yaml:"analysis_server" mapstructure:"analysis_server"`

	// AllowPrivateHosts lets the relay fetch loopback, private and
	// link-local addresses
	AllowPrivateHosts bool `yaml:"allow_private_hosts" mapstructure:"allow_private_hosts"`
}

// LLMConfig selects the hosted model behind the analysis flows
type LLMConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model            string `yaml:"model" mapstructure:"model"`
	APIKey           string `yaml:"-" mapstructure:"api_key"`
	BaseURL          string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout          int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens        int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TranscribeModel  string `yaml:"transcribe_model" mapstructure:"transcribe_model"`
	SpeechModel      string `yaml:"speech_model" mapstructure:"speech_model"`
	AnonymizingVoice string `yaml:"anonymizing_voice" mapstructure:"anonymizing_voice"`
}

// StoreConfig locates the persisted report document
type StoreConfig struct {
	Path          string        `yaml:"path" mapstructure:"path"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	MutationQueue int           `yaml:"mutation_queue" mapstructure:"mutation_queue"`
}

// ServerConfig configures the HTTP boundary
type ServerConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	PublicURL string `yaml:"public_url" mapstructure:"public_url"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`

	// BridgeToken is the bearer token POST /bridge requires. The relay is
	// not served without one.
	BridgeToken string `yaml:"-" mapstructure:"bridge_token"`
}

// DispatchConfig bounds external analysis calls
type DispatchConfig struct {
	StepTimeout time.Duration `yaml:"step_timeout" mapstructure:"step_timeout"`
	FailFast    bool          `yaml:"fail_fast" mapstructure:"fail_fast"`
}

// ResolverConfig bounds each resolution strategy
type ResolverConfig struct {
	StepTimeout   time.Duration `yaml:"step_timeout" mapstructure:"step_timeout"`
	FrameMaxEdge  int           `yaml:"frame_max_edge" mapstructure:"frame_max_edge"`
	ChromeEnabled bool          `yaml:"chrome_enabled" mapstructure:"chrome_enabled"`
}

// CitationConfig controls checking the outbound links of analyzed pages
type CitationConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxLinks int           `yaml:"max_links" mapstructure:"max_links"`
	Workers  int           `yaml:"workers" mapstructure:"workers"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AuthorityConfig drives source authority classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls terminal rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Unearth/0.1 (+https://github.com/ppiankov/unearth)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Fetch: FetchConfig{
			Timeout:        30 * time.Second,
			MaxMediaBytes:  50_000_000,
			RatePerSecond:  2,
			Burst:          4,
			CacheTTL:       15 * time.Minute,
			CacheDir:       ".unearth/media-cache",
			AnalysisServer: "http://localhost:9002",
		},
		LLM: LLMConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			Timeout:          60,
			MaxTokens:        1500,
			TranscribeModel:  "whisper-1",
			SpeechModel:      "tts-1",
			AnonymizingVoice: "onyx",
		},
		Store: StoreConfig{
			Path:          ".unearth/db.json",
			MemoryTTL:     time.Hour,
			MutationQueue: 64,
		},
		Server: ServerConfig{
			Addr:      ":9002",
			PublicURL: "http://localhost:9002",
			LogFormat: "text",
		},
		Dispatch: DispatchConfig{
			StepTimeout: 90 * time.Second,
			FailFast:    false,
		},
		Resolver: ResolverConfig{
			StepTimeout:  20 * time.Second,
			FrameMaxEdge: 1280,
		},
		Citations: CitationConfig{
			Enabled:  true,
			MaxLinks: 25,
			Workers:  8,
			Timeout:  10 * time.Second,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"gov", "gov.uk", "europa.eu", "who.int", "un.org", "doi.org",
			},
			SecondaryDomains: []string{
				"reuters.com", "apnews.com", "bbc.co.uk", "bbc.com", "nytimes.com",
				"theguardian.com", "wikipedia.org", "npr.org",
			},
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
