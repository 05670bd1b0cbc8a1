package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc returns an environment value and whether it was set.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, applies defaults for unset
// values and validates the result. Every problem is reported, not just
// the first.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	if err := populate(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func populate(v reflect.Value, lookup LookupFunc) error {
	var errs []error
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := populate(fv, lookup); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value := envValue(lookup, name, field.Tag.Get("envAlt"))
		if value == "" {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := assign(fv, value); err != nil {
			shown := value
			if field.Tag.Get("secret") == "true" {
				shown = "[MASKED]"
			}
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", name, shown, err))
		}
	}
	return errors.Join(errs...)
}

func envValue(lookup LookupFunc, primary, alt string) string {
	if v, ok := lookup(primary); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if alt != "" {
		if v, ok := lookup(alt); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func assign(fv reflect.Value, value string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", fv.Type().Elem().Kind())
		}
		var items []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		fv.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", fv.Kind())
	}
	return nil
}

// Validate checks cross-field rules and ranges.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	if c.Database.Enabled() {
		check(c.Database.MaxConns > 0, "DB_MAX_CONNS must be positive")
		check(c.Database.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
		check(c.Database.MaxConns >= c.Database.MinConns,
			"DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	check(c.Upload.MaxFileSize > 0, "UPLOAD_MAX_FILE_SIZE must be positive")
	check(c.Upload.MaxConcurrent > 0, "UPLOAD_MAX_CONCURRENT must be positive")
	check(c.Upload.MaxWaitTime > 0, "UPLOAD_MAX_WAIT_TIME must be positive")
	check(c.Upload.Timeout > 0, "UPLOAD_TIMEOUT must be positive")

	if c.Rate.Enabled {
		check(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		check(c.Rate.UploadLimit > 0, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	check(c.Auth.SessionTTL > 0, "SESSION_TTL must be positive")
	check(!c.Auth.RequireLogin || c.Auth.LoginURL != "", "AUTH_REQUIRE_LOGIN is true but AUTH_LOGIN_URL is empty")

	check(c.Samples.Dir == "" || c.Samples.BaseURL == "", "set at most one of SAMPLES_DIR and SAMPLES_BASE_URL")
	check(c.Samples.FetchTimeout > 0, "SAMPLES_FETCH_TIMEOUT must be positive")

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// String returns the configuration with secrets masked, for logging.
func (c *Config) String() string {
	db := "disabled"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}
	sampleSrc := "embedded"
	switch {
	case c.Samples.Dir != "":
		sampleSrc = "dir:" + c.Samples.Dir
	case c.Samples.BaseURL != "":
		sampleSrc = "url:" + c.Samples.BaseURL
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d}, ", db, c.Database.MaxConns)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ", c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Auth: {Login: %v, SessionTTL: %s}, ", c.Auth.LoginURL != "", c.Auth.SessionTTL)
	fmt.Fprintf(&b, "Samples: %s, ", sampleSrc)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
