package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PRINTBRIDGE_HTTP_PORT
const EnvPrefix = "PRINTBRIDGE"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Scratch   ScratchConfig
	Spooler   SpoolerConfig
	Render    RenderConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
	AllowedOrigins  []string
}

// Addr returns host:port for net/http
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ScratchConfig holds the temp file directory settings
type ScratchConfig struct {
	Dir string
	// SweepInterval is how often stale scratch files are removed; 0 disables sweeping
	SweepInterval time.Duration
	// TTL is the age after which a scratch file is stale
	TTL time.Duration
}

// SpoolerConfig holds print backend settings
type SpoolerConfig struct {
	// Backend is auto, cups, windows, memory or none
	Backend        string
	CommandTimeout time.Duration
	MaxParallel    int
	// CheckTools fails startup when the native tools are missing
	CheckTools     bool
	LPPath         string
	LPStatPath     string
	LPOptionsPath  string
	LPQPath        string
	CancelPath     string
	PowerShellPath string
	SumatraPath    string
	// MemoryPrinters seeds the memory backend, first entry is the default
	MemoryPrinters []string
}

// RenderConfig holds HTML to PDF settings
type RenderConfig struct {
	// Engine is chromedp, wkhtmltopdf or none
	Engine          string
	Timeout         time.Duration
	ChromeRemoteURL string
	ChromeNoSandbox bool
	WkhtmltopdfPath string
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	Enabled  bool
	Secret   string
	Issuer   string
	Audience string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
}

// Load loads configuration. Priority (highest to lowest):
//  1. Environment variables with the PRINTBRIDGE_ prefix (PRINTBRIDGE_SPOOLER_BACKEND)
//  2. The file at path, or config.toml from ., ./config or /etc/printbridge
//  3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/printbridge")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Host:            v.GetString("http.host"),
			Port:            v.GetInt("http.port"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			AllowedOrigins:  v.GetStringSlice("http.allowed_origins"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Scratch: ScratchConfig{
			Dir:           v.GetString("scratch.dir"),
			SweepInterval: v.GetDuration("scratch.sweep_interval"),
			TTL:           v.GetDuration("scratch.ttl"),
		},
		Spooler: SpoolerConfig{
			Backend:        v.GetString("spooler.backend"),
			CommandTimeout: v.GetDuration("spooler.command_timeout"),
			MaxParallel:    v.GetInt("spooler.max_parallel"),
			CheckTools:     v.GetBool("spooler.check_tools"),
			LPPath:         v.GetString("spooler.lp_path"),
			LPStatPath:     v.GetString("spooler.lpstat_path"),
			LPOptionsPath:  v.GetString("spooler.lpoptions_path"),
			LPQPath:        v.GetString("spooler.lpq_path"),
			CancelPath:     v.GetString("spooler.cancel_path"),
			PowerShellPath: v.GetString("spooler.powershell_path"),
			SumatraPath:    v.GetString("spooler.sumatra_path"),
			MemoryPrinters: v.GetStringSlice("spooler.memory_printers"),
		},
		Render: RenderConfig{
			Engine:          v.GetString("render.engine"),
			Timeout:         v.GetDuration("render.timeout"),
			ChromeRemoteURL: v.GetString("render.chrome_remote_url"),
			ChromeNoSandbox: v.GetBool("render.chrome_no_sandbox"),
			WkhtmltopdfPath: v.GetString("render.wkhtmltopdf_path"),
		},
		Auth: AuthConfig{
			Enabled:  v.GetBool("auth.enabled"),
			Secret:   v.GetString("auth.secret"),
			Issuer:   v.GetString("auth.issuer"),
			Audience: v.GetString("auth.audience"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers the built-in defaults. Registering every key also
// lets AutomaticEnv override keys that are absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "printbridge")
	v.SetDefault("app.env", "development")

	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 17312)
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 2*time.Minute)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_body_size", 64<<20)
	v.SetDefault("http.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("scratch.dir", filepath.Join(os.TempDir(), "printbridge"))
	v.SetDefault("scratch.sweep_interval", 10*time.Minute)
	v.SetDefault("scratch.ttl", 24*time.Hour)

	v.SetDefault("spooler.backend", "auto")
	v.SetDefault("spooler.command_timeout", 30*time.Second)
	v.SetDefault("spooler.max_parallel", 4)
	v.SetDefault("spooler.check_tools", true)
	v.SetDefault("spooler.lp_path", "lp")
	v.SetDefault("spooler.lpstat_path", "lpstat")
	v.SetDefault("spooler.lpoptions_path", "lpoptions")
	v.SetDefault("spooler.lpq_path", "lpq")
	v.SetDefault("spooler.cancel_path", "cancel")
	v.SetDefault("spooler.powershell_path", "powershell.exe")
	v.SetDefault("spooler.sumatra_path", "SumatraPDF.exe")
	v.SetDefault("spooler.memory_printers", []string{"Virtual PDF Printer"})

	v.SetDefault("render.engine", "chromedp")
	v.SetDefault("render.timeout", 30*time.Second)
	v.SetDefault("render.chrome_remote_url", "")
	v.SetDefault("render.chrome_no_sandbox", false)
	v.SetDefault("render.wkhtmltopdf_path", "wkhtmltopdf")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "printbridge")
	v.SetDefault("auth.audience", "printbridge")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "printbridge")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.metrics_interval", 60*time.Second)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.MaxBodySize <= 0 {
		return fmt.Errorf("http.max_body_size must be positive")
	}
	if c.Scratch.Dir == "" {
		return fmt.Errorf("scratch.dir is required")
	}
	if dir := filepath.Clean(c.Scratch.Dir); dir == filepath.Clean(os.TempDir()) || dir == filepath.Dir(dir) {
		return fmt.Errorf("scratch.dir must be a dedicated directory, not %s", c.Scratch.Dir)
	}
	if c.Scratch.SweepInterval < 0 || c.Scratch.TTL < 0 {
		return fmt.Errorf("scratch.sweep_interval and scratch.ttl cannot be negative")
	}
	if c.Scratch.SweepInterval > 0 && c.Scratch.TTL == 0 {
		return fmt.Errorf("scratch.ttl is required when sweeping is enabled")
	}

	switch strings.ToLower(c.Spooler.Backend) {
	case "auto", "cups", "windows", "memory", "none":
	default:
		return fmt.Errorf("spooler.backend must be one of auto, cups, windows, memory, none; got %q", c.Spooler.Backend)
	}
	if c.Spooler.CommandTimeout <= 0 {
		return fmt.Errorf("spooler.command_timeout must be positive")
	}
	if c.Spooler.MaxParallel <= 0 {
		return fmt.Errorf("spooler.max_parallel must be positive")
	}

	switch strings.ToLower(c.Render.Engine) {
	case "chromedp", "wkhtmltopdf", "none":
	default:
		return fmt.Errorf("render.engine must be one of chromedp, wkhtmltopdf, none; got %q", c.Render.Engine)
	}

	if c.Auth.Enabled && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 characters when auth is enabled")
	}

	if c.App.Env == "production" {
		for _, origin := range c.HTTP.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("http.allowed_origins cannot be '*' in production")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}
