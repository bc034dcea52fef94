package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment keys read by Loader.
const (
	EnvFileKey        = "NUPI_ENV_FILE"
	ConfigFileKey     = "NUPI_ADAPTER_CONFIG_FILE"
	ConfigPayloadKey  = "NUPI_ADAPTER_CONFIG"
	listenAddrKey     = "NUPI_ADAPTER_LISTEN_ADDR"
	logLevelKey       = "NUPI_LOG_LEVEL"
	dataDirKey        = "NUPI_ADAPTER_DATA_DIR"
	modelDirKey       = "NUPI_MODEL_DIR"
	modelTypeKey      = "NUPI_MODEL_TYPE"
	sourceLanguageKey = "NUPI_SOURCE_LANGUAGE"
	targetLanguageKey = "NUPI_TARGET_LANGUAGE"
	useStubKey        = "NUPI_ADAPTER_USE_STUB_ENGINE"
	rateKey           = "NUPI_REQUESTS_PER_SECOND"
	deviceKey         = "CT2_DEVICE"
	computeTypeKey    = "CT2_COMPUTE_TYPE"
	threadsKey        = "CT2_THREADS"
	beamSizeKey       = "CT2_BEAM_SIZE"
)

// Loader loads configuration from environment variables. Tests can override
// Lookup to inject deterministic maps and ReadFile to serve files from memory.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
}

// Load retrieves the adapter configuration and validates it. Sources in
// increasing precedence: defaults, YAML file, JSON payload, environment.
// Variables from the .env file fill in keys the process environment lacks.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	lookup, err := l.withEnvFile()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr: DefaultListenAddr,
	}

	if path, ok := lookup(ConfigFileKey); ok && strings.TrimSpace(path) != "" {
		if err := l.applyYAMLFile(strings.TrimSpace(path), &cfg); err != nil {
			return Config{}, err
		}
	}

	if raw, ok := lookup(ConfigPayloadKey); ok && strings.TrimSpace(raw) != "" {
		if err := applyJSON(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrideString(lookup, listenAddrKey, &cfg.ListenAddr)
	overrideString(lookup, logLevelKey, &cfg.LogLevel)
	overrideString(lookup, dataDirKey, &cfg.DataDir)
	overrideString(lookup, modelDirKey, &cfg.ModelDir)
	overrideString(lookup, modelTypeKey, &cfg.ModelType)
	overrideString(lookup, sourceLanguageKey, &cfg.SourceLanguage)
	overrideString(lookup, targetLanguageKey, &cfg.TargetLanguage)
	overrideString(lookup, deviceKey, &cfg.Device)
	overrideString(lookup, computeTypeKey, &cfg.ComputeType)
	if err := overrideBool(lookup, useStubKey, &cfg.UseStubEngine); err != nil {
		return Config{}, err
	}
	if err := overrideIntPtr(lookup, threadsKey, &cfg.Threads); err != nil {
		return Config{}, err
	}
	if err := overrideIntPtr(lookup, beamSizeKey, &cfg.BeamSize); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(lookup, rateKey, &cfg.RequestsPerSecond); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l Loader) withEnvFile() (func(string) (string, bool), error) {
	path, ok := l.Lookup(EnvFileKey)
	if !ok || strings.TrimSpace(path) == "" {
		return l.Lookup, nil
	}
	data, err := l.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", EnvFileKey, err)
	}
	values, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", EnvFileKey, err)
	}
	base := l.Lookup
	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

// payload is the shape shared by the YAML file and the JSON payload.
type payload struct {
	ListenAddr        string   `json:"listen_addr" yaml:"listen_addr"`
	LogLevel          string   `json:"log_level" yaml:"log_level"`
	DataDir           string   `json:"data_dir" yaml:"data_dir"`
	ModelDir          string   `json:"model_dir" yaml:"model_dir"`
	ModelType         string   `json:"model_type" yaml:"model_type"`
	SourceLanguage    string   `json:"source_language" yaml:"source_language"`
	TargetLanguage    string   `json:"target_language" yaml:"target_language"`
	UseStubEngine     *bool    `json:"use_stub_engine" yaml:"use_stub_engine"`
	Device            string   `json:"device" yaml:"device"`
	ComputeType       string   `json:"compute_type" yaml:"compute_type"`
	Threads           *int     `json:"threads" yaml:"threads"`
	BeamSize          *int     `json:"beam_size" yaml:"beam_size"`
	RequestsPerSecond *float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

func (l Loader) applyYAMLFile(path string, cfg *Config) error {
	data, err := l.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var p payload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	p.apply(cfg)
	return nil
}

func applyJSON(raw string, cfg *Config) error {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return fmt.Errorf("config: decode %s: %w", ConfigPayloadKey, err)
	}
	p.apply(cfg)
	return nil
}

func (p payload) apply(cfg *Config) {
	setString(&cfg.ListenAddr, p.ListenAddr)
	setString(&cfg.LogLevel, p.LogLevel)
	setString(&cfg.DataDir, p.DataDir)
	setString(&cfg.ModelDir, p.ModelDir)
	setString(&cfg.ModelType, p.ModelType)
	setString(&cfg.SourceLanguage, p.SourceLanguage)
	setString(&cfg.TargetLanguage, p.TargetLanguage)
	setString(&cfg.Device, p.Device)
	setString(&cfg.ComputeType, p.ComputeType)
	if p.UseStubEngine != nil {
		cfg.UseStubEngine = *p.UseStubEngine
	}
	if p.Threads != nil {
		v := *p.Threads
		cfg.Threads = &v
	}
	if p.BeamSize != nil {
		v := *p.BeamSize
		cfg.BeamSize = &v
	}
	if p.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *p.RequestsPerSecond
	}
}

func setString(target *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*target = trimmed
	}
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	*target = parsed
	return nil
}

func overrideIntPtr(lookup func(string) (string, bool), key string, target **int) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	*target = &parsed
	return nil
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	*target = parsed
	return nil
}
