package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validateConfig validates the loaded configuration values
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	if err := validateServiceConfig(&config.Service); err != nil {
		return fmt.Errorf("service config validation failed: %w", err)
	}

	if err := validateRPCConfig(&config.RPC); err != nil {
		return fmt.Errorf("rpc config validation failed: %w", err)
	}

	if err := validateStoreType(config.UploadStore.Type); err != nil {
		return fmt.Errorf("upload store config validation failed: %w", err)
	}

	if err := validateStoreType(config.ProxyStore.Type); err != nil {
		return fmt.Errorf("proxy store config validation failed: %w", err)
	}

	if err := validateProxyStoreConfig(&config.ProxyStore); err != nil {
		return fmt.Errorf("proxy store config validation failed: %w", err)
	}

	if err := validateUploadLimitsConfig(&config.UploadLimits); err != nil {
		return fmt.Errorf("upload limits config validation failed: %w", err)
	}

	if err := validateLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	return nil
}

func validateServerConfig(config *ServerConfig) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	if config.ReadTimeout <= 0 {
		return fmt.Errorf("timeout values must be positive, got ReadTimeout: %v", config.ReadTimeout)
	}

	if config.WriteTimeout <= 0 {
		return fmt.Errorf("timeout values must be positive, got WriteTimeout: %v", config.WriteTimeout)
	}

	if config.IdleTimeout <= 0 {
		return fmt.Errorf("timeout values must be positive, got IdleTimeout: %v", config.IdleTimeout)
	}

	if config.NumWorkers < 0 {
		return fmt.Errorf("num_workers must not be negative, got %d", config.NumWorkers)
	}

	return nil
}

func validateServiceConfig(config *ServiceConfig) error {
	u, err := url.Parse(config.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service URL must be absolute, got %q", config.URL)
	}

	if config.MaxImageSize <= 0 {
		return fmt.Errorf("max_image_size must be positive, got %d", config.MaxImageSize)
	}

	return nil
}

func validateRPCConfig(config *RPCConfig) error {
	if len(config.Nodes) == 0 {
		return fmt.Errorf("at least one RPC node is required")
	}

	for _, node := range config.Nodes {
		u, err := url.Parse(node)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("RPC node URL must be absolute, got %q", node)
		}
	}

	if config.FailoverThreshold < 1 {
		return fmt.Errorf("failover threshold must be at least 1, got %d", config.FailoverThreshold)
	}

	return nil
}

func validateStoreType(storeType string) error {
	switch storeType {
	case "fs", "s3", "memory":
		return nil
	default:
		return fmt.Errorf("store type must be one of fs, s3, memory; got %q", storeType)
	}
}

func validateProxyStoreConfig(config *ProxyStoreConfig) error {
	if config.MaxImageWidth <= 0 || config.MaxImageHeight <= 0 {
		return fmt.Errorf("max image dimensions must be positive, got %dx%d",
			config.MaxImageWidth, config.MaxImageHeight)
	}

	if config.MaxCustomImageWidth < config.MaxImageWidth || config.MaxCustomImageHeight < config.MaxImageHeight {
		return fmt.Errorf("max custom image dimensions must not be below the defaults, got %dx%d",
			config.MaxCustomImageWidth, config.MaxCustomImageHeight)
	}

	return nil
}

func validateUploadLimitsConfig(config *UploadLimitsConfig) error {
	if config.Duration <= 0 {
		return fmt.Errorf("upload limit duration must be positive, got %v", config.Duration)
	}

	if config.Max <= 0 {
		return fmt.Errorf("upload limit max must be positive, got %d", config.Max)
	}

	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error; got %q", config.Level)
	}

	switch strings.ToLower(config.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", config.Format)
	}

	return nil
}
