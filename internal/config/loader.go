package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

const moduleName = "config"

// EnvPrefix is prepended to every environment override, e.g.
// NSRDB2EPW_REQUEST_API_KEY or NSRDB2EPW_PROVIDER_MODE.
const EnvPrefix = "NSRDB2EPW_"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	Expander       EnvironmentExpander
	EnvFilePath    string   `name:"envFilePath" optional:"true"`
	ConfigFile     string   `name:"configFile" optional:"true"`
	Override       Override `optional:"true"`
}

// Override adjusts a loaded Config before it is validated. Command-line
// flags reach the configuration through it.
type Override func(cfg *Config)

// LoadOptions are the inputs of LoadConfig.
type LoadOptions struct {
	// EnvFilePath is the .env file to load; empty tries ".env" silently.
	EnvFilePath string
	// Embedded is the YAML compiled into the binary.
	Embedded EmbeddedConfig
	// ConfigFile is an optional user YAML file layered over Embedded.
	ConfigFile string
	// Expander expands ${VAR} placeholders in YAML; nil uses os.ExpandEnv.
	Expander EnvironmentExpander
}

// LoadConfig builds a Config from, in increasing precedence: defaults, the
// embedded YAML, the user YAML file, and NSRDB2EPW_* environment variables
// (after .env has been loaded into the process environment).
func LoadConfig(opts LoadOptions) (*Config, error) {
	if opts.EnvFilePath != "" {
		if err := godotenv.Load(opts.EnvFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", opts.EnvFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	expander := opts.Expander
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	if len(opts.Embedded) > 0 {
		if err := unmarshalInto(cfg, opts.Embedded, expander); err != nil {
			return nil, exception.Configuration(moduleName, "failed to unmarshal embedded config", err)
		}
	}

	if opts.ConfigFile != "" {
		raw, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return nil, exception.Configuration(moduleName, fmt.Sprintf("failed to read config file '%s'", opts.ConfigFile), err)
		}
		if err := unmarshalInto(cfg, raw, expander); err != nil {
			return nil, exception.Configuration(moduleName, fmt.Sprintf("failed to unmarshal config file '%s'", opts.ConfigFile), err)
		}
		logger.Debugf("Loaded configuration file '%s'.", opts.ConfigFile)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.Configuration(moduleName, "failed to load config from environment variables", err)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads *Config, applies the
// optional Override and the log level, and validates the general settings.
// Request-level validation (geometry, API key) is left to the commands that
// issue requests.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(LoadOptions{
		EnvFilePath: params.EnvFilePath,
		Embedded:    params.EmbeddedConfig,
		ConfigFile:  params.ConfigFile,
		Expander:    params.Expander,
	})
	if err != nil {
		return nil, err
	}
	if params.Override != nil {
		params.Override(cfg)
	}

	logger.SetLogLevel(cfg.App.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.App.System.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// unmarshalInto decodes YAML over cfg. yaml.v3 leaves fields absent from the
// document untouched, so earlier layers survive.
func unmarshalInto(cfg *Config, raw []byte, expander EnvironmentExpander) error {
	expanded, err := expander.Expand(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(expanded, cfg)
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to determine the environment variable name.
//
// Parameters:
//
//	val: The reflect.Value of the struct to populate.
//	prefix: The prefix accumulated so far (e.g., "NSRDB2EPW_PROVIDER_").
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String &&
			field.Type().Elem().Kind() == reflect.Interface {
			// Named sections: NSRDB2EPW_DATABASE_LEDGER_DSN sets database.ledger.dsn.
			loadNamedSectionsFromEnv(field, envVarName+"_")
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadNamedSectionsFromEnv populates a map[string]interface{} of named
// sections from environment variables. The first segment after prefix is the
// section name, the rest is the (lower-cased) property key. Values stay
// strings; configbinder converts them when the section is decoded.
//
// Example: with prefix "NSRDB2EPW_STORAGE_", STORAGE_ARCHIVE_BUCKET_NAME=b
// sets storage["archive"]["bucket_name"] = "b".
func loadNamedSectionsFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	section := mapField.Interface().(map[string]interface{})

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 || keyAndField[0] == "" || keyAndField[1] == "" {
			continue
		}
		name := strings.ToLower(keyAndField[0])
		prop := strings.ToLower(keyAndField[1])

		entry, ok := section[name].(map[string]interface{})
		if !ok {
			entry = map[string]interface{}{}
			section[name] = entry
		}
		entry[prop] = parts[1]
	}
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, bool and comma-separated string slices.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		field.Set(reflect.ValueOf(SplitList(value)))
	}
	return nil
}

// SplitList splits a comma-separated list, trimming blanks and dropping empty items.
func SplitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
