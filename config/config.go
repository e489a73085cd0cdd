package config

import (
	"net/url"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server       ServerConfig       `json:"server"`
	Service      ServiceConfig      `json:"service"`
	RPC          RPCConfig          `json:"rpc"`
	UploadStore  StoreConfig        `json:"upload_store"`
	ProxyStore   ProxyStoreConfig   `json:"proxy_store"`
	UploadLimits UploadLimitsConfig `json:"upload_limits"`
	Blacklist    BlacklistConfig    `json:"blacklist"`
	Cloudflare   CloudflareConfig   `json:"cloudflare"`
	Redis        RedisConfig        `json:"redis"`
	Fetch        FetchConfig        `json:"fetch"`
	Logging      LoggingConfig      `json:"logging"`
}

type ServerConfig struct {
	Port         int           `json:"port" env:"PORT" default:"8800"`
	NumWorkers   int           `json:"num_workers" env:"NUM_WORKERS" default:"0"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"60s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `json:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"120s"`
}

type ServiceConfig struct {
	// URL is the externally visible base URL; upload responses and the
	// empty-image sentinels are derived from it.
	URL           string `json:"url" env:"SERVICE_URL" default:"http://localhost:8800"`
	DefaultAvatar string `json:"default_avatar" env:"DEFAULT_AVATAR" default:"https://images.hive.blog/DQmb2DPGdAz4knvHWCRzBdB9MTMzHGGAEYsD8U8BoGnvsrw/default_avatar.png"`
	DefaultCover  string `json:"default_cover" env:"DEFAULT_COVER" default:"https://images.hive.blog/DQmVydPLW3H2JgEAvajCqC4vVYT2pkxbQZ2WeSBHAJSncs7/default_cover.png"`
	MaxImageSize  int    `json:"max_image_size" env:"MAX_IMAGE_SIZE" default:"30000000"`
}

type RPCConfig struct {
	Nodes             []string      `json:"rpc_node" env:"RPC_NODES" default:"https://api.hive.blog,https://api.deathwing.me"`
	Timeout           time.Duration `json:"timeout" env:"RPC_TIMEOUT" default:"2s"`
	FailoverThreshold int           `json:"failover_threshold" env:"RPC_FAILOVER_THRESHOLD" default:"2"`
}

type StoreConfig struct {
	Type     string `json:"type" env:"UPLOAD_STORE_TYPE" default:"fs"`
	Path     string `json:"path" env:"UPLOAD_STORE_PATH" default:"/var/lib/imagehoster/uploads"`
	S3Bucket string `json:"s3_bucket" env:"UPLOAD_STORE_S3_BUCKET"`
	S3Region string `json:"s3_region" env:"UPLOAD_STORE_S3_REGION" default:"us-east-1"`
}

type ProxyStoreConfig struct {
	Type     string `json:"type" env:"PROXY_STORE_TYPE" default:"fs"`
	Path     string `json:"path" env:"PROXY_STORE_PATH" default:"/var/lib/imagehoster/proxied"`
	S3Bucket string `json:"s3_bucket" env:"PROXY_STORE_S3_BUCKET"`
	S3Region string `json:"s3_region" env:"PROXY_STORE_S3_REGION" default:"us-east-1"`

	MaxImageWidth        int `json:"max_image_width" env:"PROXY_MAX_IMAGE_WIDTH" default:"1280"`
	MaxImageHeight       int `json:"max_image_height" env:"PROXY_MAX_IMAGE_HEIGHT" default:"1280"`
	MaxCustomImageWidth  int `json:"max_custom_image_width" env:"PROXY_MAX_CUSTOM_IMAGE_WIDTH" default:"8000"`
	MaxCustomImageHeight int `json:"max_custom_image_height" env:"PROXY_MAX_CUSTOM_IMAGE_HEIGHT" default:"8000"`
}

type UploadLimitsConfig struct {
	Duration time.Duration `json:"duration" env:"UPLOAD_LIMIT_DURATION" default:"24h"`
	Max      int           `json:"max" env:"UPLOAD_LIMIT_MAX" default:"100"`
	// Reputation is the minimum normalized reputation required to upload.
	Reputation        float64 `json:"reputation" env:"UPLOAD_LIMIT_REPUTATION" default:"10"`
	AppAccount        string  `json:"app_account" env:"UPLOAD_APP_ACCOUNT" default:"hivesigner"`
	AppPostingWif     string  `json:"app_posting_wif" env:"UPLOAD_APP_POSTING_WIF"`
	AppPostingWifFile string  `json:"-" env:"UPLOAD_APP_POSTING_WIF_FILE"`
}

type BlacklistConfig struct {
	CacheTTL    time.Duration `json:"cache_ttl" env:"BLACKLIST_CACHE_TTL" default:"5m"`
	ImagesURL   string        `json:"images_url" env:"BLACKLIST_IMAGES_URL"`
	AccountsURL string        `json:"accounts_url" env:"BLACKLIST_ACCOUNTS_URL"`
	SeedFile    string        `json:"seed_file" env:"BLACKLIST_SEED_FILE"`
}

type CloudflareConfig struct {
	Token string `json:"token" env:"CLOUDFLARE_TOKEN"`
	Zone  string `json:"zone" env:"CLOUDFLARE_ZONE"`
}

type RedisConfig struct {
	URL string `json:"url" env:"REDIS_URL"`
}

type FetchConfig struct {
	Timeout      time.Duration `json:"timeout" env:"FETCH_TIMEOUT" default:"10s"`
	UserAgent    string        `json:"user_agent" env:"FETCH_USER_AGENT" default:"imagehoster/1.0"`
	HostInterval time.Duration `json:"host_interval" env:"FETCH_HOST_INTERVAL" default:"100ms"`
}

type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"LOG_FORMAT" default:"json"`
}

// NewConfig creates a new configuration by loading from environment
// variables with fallback to default values.
func NewConfig() (*Config, error) {
	config := &Config{}

	if err := loadFromEnvironment(config); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	// Load the posting WIF from a file if configured (Docker Secrets support)
	if config.UploadLimits.AppPostingWifFile != "" {
		content, err := os.ReadFile(config.UploadLimits.AppPostingWifFile)
		if err == nil {
			config.UploadLimits.AppPostingWif = strings.TrimSpace(string(content))
		}
		// If the file read fails we fall back to the env var value, if any
	}

	return config, nil
}

// Load is an alias for NewConfig.
func Load() (*Config, error) {
	return NewConfig()
}

// ServiceURL returns the parsed service base URL.
func (c *Config) ServiceURL() *url.URL {
	u, err := url.Parse(c.Service.URL)
	if err != nil {
		return &url.URL{Scheme: "http", Host: "localhost"}
	}
	return u
}
