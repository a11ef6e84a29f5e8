package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Lookup returns the value of an environment variable and whether it is set.
// os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an explicit variable source.
func LoadFrom(lookup Lookup) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct fills tagged fields of v, recursing into nested config groups.
// Tags: env names the variable, envAlt a fallback name, default the value
// used when neither is set, and required="true" rejects an unset variable.
func loadStruct(v reflect.Value, lookup Lookup) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookupNonEmpty(lookup, envName)
		if !ok {
			if alt := field.Tag.Get("envAlt"); alt != "" {
				value, ok = lookupNonEmpty(lookup, alt)
			}
		}
		if !ok {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

func lookupNonEmpty(lookup Lookup, key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var items []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// problems accumulates validation failures keyed by variable name.
type problems []string

func (p *problems) check(ok bool, name, format string, args ...any) {
	if !ok {
		*p = append(*p, name+" "+fmt.Sprintf(format, args...))
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate reports every invalid setting at once rather than stopping at
// the first.
func (c *Config) Validate() error {
	var p problems
	c.Server.validate(&p)
	c.Upload.validate(&p)
	c.Chart.validate(&p)
	c.Session.validate(&p)
	if c.Database.Enabled() {
		c.Database.validate(&p)
	}
	if c.Rate.Enabled {
		p.check(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE", "must be > 0 while rate limiting is on")
		p.check(c.Rate.UploadLimit > 0, "RATE_LIMIT_UPLOAD", "must be > 0 while rate limiting is on")
	}
	p.check(oneOf(c.Logging.Level, logLevels), "LOG_LEVEL", "%q is not one of %s", c.Logging.Level, strings.Join(logLevels, ", "))
	p.check(oneOf(c.Logging.Format, logFormats), "LOG_FORMAT", "%q is not one of %s", c.Logging.Format, strings.Join(logFormats, ", "))
	return p.err()
}

func (s ServerConfig) validate(p *problems) {
	p.check(s.Port >= 1 && s.Port <= 65535, "SERVER_PORT", "%d is outside 1-65535", s.Port)
	p.check(s.ReadTimeout >= 0, "SERVER_READ_TIMEOUT", "cannot be negative")
	p.check(s.WriteTimeout >= 0, "SERVER_WRITE_TIMEOUT", "cannot be negative")
	p.check(s.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT", "must be > 0")
	p.check(s.RequestTimeout > 0, "SERVER_REQUEST_TIMEOUT", "must be > 0")
}

func (u UploadConfig) validate(p *problems) {
	p.check(u.MaxFileSize > 0, "UPLOAD_MAX_FILE_SIZE", "must be > 0")
	p.check(u.MaxConcurrent > 0, "UPLOAD_MAX_CONCURRENT", "must be > 0")
	p.check(u.MaxWaitTime > 0, "UPLOAD_MAX_WAIT_TIME", "must be > 0")
	p.check(u.MaxRows >= 0, "UPLOAD_MAX_ROWS", "cannot be negative")
	p.check(u.PreviewRows > 0, "UPLOAD_PREVIEW_ROWS", "must be > 0")
}

func (c ChartConfig) validate(p *problems) {
	p.check(c.Width >= minChartSize && c.Height >= minChartSize, "CHART_WIDTH/CHART_HEIGHT", "must each be at least %d", minChartSize)
	p.check(c.HistogramBins >= 0, "CHART_HISTOGRAM_BINS", "cannot be negative")
}

func (s SessionConfig) validate(p *problems) {
	p.check(s.CookieName != "", "SESSION_COOKIE_NAME", "is empty")
	p.check(s.TTL > 0, "SESSION_TTL", "must be > 0")
	p.check(s.SweepInterval > 0, "SESSION_SWEEP_INTERVAL", "must be > 0")
}

func (d DatabaseConfig) validate(p *problems) {
	p.check(d.MaxConns > 0, "DB_MAX_CONNS", "must be > 0")
	p.check(d.MinConns >= 0, "DB_MIN_CONNS", "cannot be negative")
	p.check(d.MaxConns >= d.MinConns, "DB_MAX_CONNS", "(%d) is below DB_MIN_CONNS (%d)", d.MaxConns, d.MinConns)
}

func oneOf(v string, allowed []string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// minChartSize keeps axes and labels legible.
const minChartSize = 100

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	db := "none"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d, MaxRows: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.MaxRows)
	fmt.Fprintf(&b, "Chart: {Width: %d, Height: %d}, ", c.Chart.Width, c.Chart.Height)
	fmt.Fprintf(&b, "Session: {TTL: %s}, ", c.Session.TTL)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d}, ", db, c.Database.MaxConns)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
