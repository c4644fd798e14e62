package config

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	schemavalidator "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

const schemaURL = "https://reglet.dev/schemas/oracle-config.json"

var (
	compiledOnce   sync.Once
	compiledSchema *schemavalidator.Schema
	compileErr     error
)

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := Decode(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set win. A missing default ".env" is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Decode checks YAML data against the configuration schema and decodes it
// over cfg.
func Decode(data []byte, cfg *Config) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		return nil
	}

	// Round trip through JSON so the schema validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return err
	}

	schema, err := compiled()
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return &domainerrors.ConfigError{Field: "schema", Err: err}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with the ORACLE_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := envdecode.Decode(cfg); err != nil && !stdErrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Validate checks cfg with its validate tags. The first failing field is
// reported as a *errors.ConfigError.
func Validate(cfg *Config) error {
	if _, err := cfg.ProtocolVersion(); err != nil {
		return &domainerrors.ConfigError{Field: "protocol", Err: err}
	}
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domainerrors.ConfigError{
			Field: fieldPath(fe.Namespace()),
			Err:   fmt.Errorf("failed on '%s' rule", fe.Tag()),
		}
	}
	return fmt.Errorf("config validation failed: %w", err)
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Config{})
	schema.ID = schemaURL
	schema.Title = "Oracle host configuration"

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}

func compiled() (*schemavalidator.Schema, error) {
	compiledOnce.Do(func() {
		doc, err := Schema()
		if err != nil {
			compileErr = err
			return
		}
		c := schemavalidator.NewCompiler()
		if err := c.AddResource(schemaURL, strings.NewReader(string(doc))); err != nil {
			compileErr = fmt.Errorf("failed to add config schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}
