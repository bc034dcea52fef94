package config

import "fmt"

const (
	// DefaultListenAddr is used when the adapter runner does not inject an explicit address.
	DefaultListenAddr     = "127.0.0.1:50051"
	DefaultModelType      = "lite"
	DefaultSourceLanguage = "auto"
	DefaultTargetLanguage = "en"
	DefaultLogLevel       = "info"
	DefaultDataDir        = "data"
)

// Config captures bootstrap configuration extracted from environment variables,
// an optional .env file, an optional YAML file, or an injected JSON payload
// (`NUPI_ADAPTER_CONFIG`).
type Config struct {
	ListenAddr     string
	LogLevel       string
	DataDir        string
	ModelDir       string
	ModelType      string
	SourceLanguage string
	TargetLanguage string
	UseStubEngine  bool
	Device         string
	ComputeType    string
	Threads        *int
	BeamSize       *int
	// RequestsPerSecond throttles the gRPC service; zero disables throttling.
	RequestsPerSecond float64
}

// Validate applies defaults, checks required fields, and rejects out-of-range
// values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.ModelType == "" {
		c.ModelType = DefaultModelType
	}
	if c.ModelType != "lite" && c.ModelType != "full" {
		return fmt.Errorf("config: model_type must be lite or full, got %q", c.ModelType)
	}
	if c.SourceLanguage == "" {
		c.SourceLanguage = DefaultSourceLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = DefaultTargetLanguage
	}
	if c.TargetLanguage == "auto" {
		return fmt.Errorf("config: target_language cannot be auto")
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Threads != nil && *c.Threads < 0 {
		return fmt.Errorf("config: threads must be >= 0, got %d", *c.Threads)
	}
	if c.Threads != nil && *c.Threads == 0 {
		c.Threads = nil
	}
	if c.BeamSize != nil && *c.BeamSize < 1 {
		return fmt.Errorf("config: beam_size must be >= 1, got %d", *c.BeamSize)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("config: requests_per_second must be >= 0, got %g", c.RequestsPerSecond)
	}
	return nil
}
