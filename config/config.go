// Package config loads the oracle host configuration.
//
// Values are layered: built-in defaults, then an optional YAML file checked
// against the generated JSON schema, then ORACLE_* environment variables
// (optionally read from a .env file). The result is validated with
// go-playground/validator before use.
package config

import (
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/infrastructure/feeder"
)

// Config is the root of the host configuration.
type Config struct {
	Protocol       string          `yaml:"protocol" json:"protocol,omitempty" env:"ORACLE_PROTOCOL" validate:"omitempty,oneof=v1 v2 1 2" jsonschema:"enum=v1,enum=v2,enum=1,enum=2"`
	Source         SourceConfig    `yaml:"source" json:"source,omitempty"`
	Cache          CacheConfig     `yaml:"cache" json:"cache,omitempty"`
	Storage        StorageConfig   `yaml:"storage" json:"storage,omitempty"`
	Feeder         FeederConfig    `yaml:"feeder" json:"feeder,omitempty"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" json:"rate_limit,omitempty"`
	Server         ServerConfig    `yaml:"server" json:"server,omitempty"`
	Log            LogConfig       `yaml:"log" json:"log,omitempty"`
	Contract       ContractConfig  `yaml:"contract" json:"contract,omitempty"`
	OutputCapacity uint32          `yaml:"output_capacity" json:"output_capacity,omitempty" env:"ORACLE_OUTPUT_CAPACITY" validate:"omitempty,min=8"`
}

// SourceConfig selects the off-chain data source.
type SourceConfig struct {
	Kind         string            `yaml:"kind" json:"kind,omitempty" env:"ORACLE_SOURCE_KIND" validate:"oneof=static http" jsonschema:"enum=static,enum=http"`
	URL          string            `yaml:"url" json:"url,omitempty" env:"ORACLE_SOURCE_URL" validate:"required_if=Kind http,omitempty,url"`
	Selector     string            `yaml:"selector" json:"selector,omitempty" env:"ORACLE_SOURCE_SELECTOR"`
	Headers      map[string]string `yaml:"headers" json:"headers,omitempty"`
	AllowedHosts []string          `yaml:"allowed_hosts" json:"allowed_hosts,omitempty" env:"ORACLE_SOURCE_ALLOWED_HOSTS"`
	Static       []StaticEntry     `yaml:"static" json:"static,omitempty" validate:"dive"`
	Timeout      Duration          `yaml:"timeout" json:"timeout,omitempty" env:"ORACLE_SOURCE_TIMEOUT"`
	MaxBodySize  int               `yaml:"max_body_size" json:"max_body_size,omitempty" env:"ORACLE_SOURCE_MAX_BODY_SIZE" validate:"gte=0"`
	Current      entities.DataID   `yaml:"current" json:"current,omitempty" env:"ORACLE_SOURCE_CURRENT"`
	AllowPrivate bool              `yaml:"allow_private" json:"allow_private,omitempty" env:"ORACLE_SOURCE_ALLOW_PRIVATE"`
}

// StaticEntry is one value served by the static source.
type StaticEntry struct {
	Value string          `yaml:"value" json:"value" validate:"hexadecimal" jsonschema:"required,pattern=^(0x)?[0-9a-fA-F]*$"`
	ID    entities.DataID `yaml:"id" json:"id" jsonschema:"required"`
}

// CacheConfig puts a read-through cache in front of the source.
type CacheConfig struct {
	Kind          string   `yaml:"kind" json:"kind,omitempty" env:"ORACLE_CACHE_KIND" validate:"oneof=none memory redis" jsonschema:"enum=none,enum=memory,enum=redis"`
	Prefix        string   `yaml:"prefix" json:"prefix,omitempty" env:"ORACLE_CACHE_PREFIX"`
	RedisAddr     string   `yaml:"redis_addr" json:"redis_addr,omitempty" env:"ORACLE_REDIS_ADDR" validate:"required_if=Kind redis,omitempty,hostname_port"`
	RedisPassword string   `yaml:"redis_password" json:"redis_password,omitempty" env:"ORACLE_REDIS_PASSWORD"`
	TTL           Duration `yaml:"ttl" json:"ttl,omitempty" env:"ORACLE_CACHE_TTL"`
	RedisDB       int      `yaml:"redis_db" json:"redis_db,omitempty" env:"ORACLE_REDIS_DB" validate:"gte=0"`
}

// StorageConfig selects the host storage backend.
type StorageConfig struct {
	Kind string `yaml:"kind" json:"kind,omitempty" env:"ORACLE_STORAGE_KIND" validate:"oneof=memory file sql" jsonschema:"enum=memory,enum=file,enum=sql"`
	Path string `yaml:"path" json:"path,omitempty" env:"ORACLE_STORAGE_PATH" validate:"required_if=Kind file"`
	DSN  string `yaml:"dsn" json:"dsn,omitempty" env:"ORACLE_STORAGE_DSN" validate:"required_if=Kind sql"`
}

// FeederConfig configures the scheduled price feeder.
type FeederConfig struct {
	Schedule string        `yaml:"schedule" json:"schedule,omitempty" env:"ORACLE_FEEDER_SCHEDULE"`
	Feeds    []feeder.Feed `yaml:"feeds" json:"feeds,omitempty" validate:"required_if=Enabled true,dive"`
	Enabled  bool          `yaml:"enabled" json:"enabled,omitempty" env:"ORACLE_FEEDER_ENABLED"`
}

// RateLimitConfig throttles extension calls. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" json:"rps,omitempty" env:"ORACLE_RATE_LIMIT_RPS" validate:"gte=0"`
	Burst int     `yaml:"burst" json:"burst,omitempty" env:"ORACLE_RATE_LIMIT_BURST" validate:"gte=0"`
}

// ServerConfig configures the HTTP listener of the serve command.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr,omitempty" env:"ORACLE_SERVER_ADDR" validate:"required,hostname_port"`
}

// LogConfig configures the host logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level,omitempty" env:"ORACLE_LOG_LEVEL" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" json:"format,omitempty" env:"ORACLE_LOG_FORMAT" validate:"oneof=text json" jsonschema:"enum=text,enum=json"`
}

// ContractConfig locates the WASM contract run by the host.
type ContractConfig struct {
	Path             string   `yaml:"path" json:"path,omitempty" env:"ORACLE_CONTRACT_PATH"`
	Export           string   `yaml:"export" json:"export,omitempty" env:"ORACLE_CONTRACT_EXPORT"`
	Timeout          Duration `yaml:"timeout" json:"timeout,omitempty" env:"ORACLE_CONTRACT_TIMEOUT"`
	MemoryLimitPages uint32   `yaml:"memory_limit_pages" json:"memory_limit_pages,omitempty" env:"ORACLE_CONTRACT_MEMORY_LIMIT_PAGES"`
	MaxRequestSize   uint32   `yaml:"max_request_size" json:"max_request_size,omitempty" env:"ORACLE_CONTRACT_MAX_REQUEST_SIZE"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Protocol:       entities.DefaultProtocol.String(),
		OutputCapacity: 16 * 1024,
		Source: SourceConfig{
			Kind:        "static",
			Timeout:     Duration(10 * time.Second),
			MaxBodySize: 10 * 1024 * 1024,
		},
		Cache: CacheConfig{
			Kind:   "none",
			Prefix: "oracle",
			TTL:    Duration(30 * time.Second),
		},
		Storage: StorageConfig{Kind: "memory"},
		Feeder:  FeederConfig{Schedule: feeder.DefaultSchedule},
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
		Log:     LogConfig{Level: "info", Format: "text"},
		Contract: ContractConfig{
			Export:  "get_prices",
			Timeout: Duration(5 * time.Second),
		},
	}
}

// ProtocolVersion returns the configured protocol version.
func (c *Config) ProtocolVersion() (entities.ProtocolVersion, error) {
	if c.Protocol == "" {
		return entities.DefaultProtocol, nil
	}
	return entities.ParseProtocolVersion(c.Protocol)
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Decode implements envdecode.Decoder.
func (d *Duration) Decode(s string) error {
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML parses a scalar duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalText formats d as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 30s or 1m30s",
	}
}
