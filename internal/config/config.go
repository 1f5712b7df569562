package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/torosent/flood/internal/logging"
	"github.com/torosent/flood/internal/rawhttp"
	"github.com/torosent/flood/internal/runner"
	"github.com/torosent/flood/internal/tracing"
)

const (
	DefaultPort        = 80
	DefaultTLSPort     = 443
	DefaultPath        = "/"
	DefaultMethod      = "GET"
	DefaultConcurrency = 10
	DefaultTotal       = 100
	DefaultTimeout     = 5 * time.Second
	DefaultRemotePath  = "/loadtest"
)

type Config struct {
	Host        string            `mapstructure:"host"`
	Port        int               `mapstructure:"port"`
	HTTPS       bool              `mapstructure:"https"`
	Path        string            `mapstructure:"path"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Body        string            `mapstructure:"body"`
	BodyFile    string            `mapstructure:"body_file"`
	Concurrency int               `mapstructure:"concurrency"`
	Total       int               `mapstructure:"total"`
	Interval    time.Duration     `mapstructure:"interval"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Rate        int               `mapstructure:"rate"`
	Insecure    bool              `mapstructure:"insecure"`
	Verbose     bool              `mapstructure:"verbose"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
	LogErrors   bool              `mapstructure:"log_errors"`
	JSONOutput  bool              `mapstructure:"json_output"`
	YAMLOutput  bool              `mapstructure:"yaml_output"`
	HTMLOutput  string            `mapstructure:"html_output"`
	XLSXOutput  string            `mapstructure:"xlsx_output"`
	Dashboard   bool              `mapstructure:"dashboard"`
	MetricsAddr string            `mapstructure:"metrics_addr"`
	Thresholds  []string          `mapstructure:"thresholds"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	ConfigFile  string            `mapstructure:"-"`
}

// TracingConfig holds the OTLP exporter settings.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Options converts the settings for tracing.Init.
func (t TracingConfig) Options() tracing.Config {
	return tracing.Config{
		Endpoint:    t.Endpoint,
		Protocol:    t.Protocol,
		ServiceName: t.ServiceName,
		SampleRate:  t.SampleRate,
		Insecure:    t.Insecure,
		Propagate:   t.Propagate,
	}
}

// RemoteConfig configures the websocket trigger listener.
type RemoteConfig struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
}

// Defaults returns a Config with every default applied.
func Defaults() Config {
	return Config{
		Port:        DefaultPort,
		Path:        DefaultPath,
		Method:      DefaultMethod,
		Headers:     map[string]string{},
		Concurrency: DefaultConcurrency,
		Total:       DefaultTotal,
		Timeout:     DefaultTimeout,
		LogLevel:    "info",
		LogFormat:   logging.FormatConsole,
		Tracing:     TracingConfig{SampleRate: 1.0},
		Remote:      RemoteConfig{Path: DefaultRemotePath},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	host := strings.TrimSpace(c.Host)
	switch {
	case host == "":
		issues = append(issues, "host is required")
	case strings.ContainsAny(host, " \t\r\n/"):
		issues = append(issues, fmt.Sprintf("host %q must be a bare hostname or IP address", c.Host))
	}
	if c.Port < 1 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("port %d must be between 1 and 65535", c.Port))
	}
	if !strings.HasPrefix(c.Path, "/") {
		issues = append(issues, fmt.Sprintf("path %q must start with /", c.Path))
	}
	if c.Method == "" || strings.ContainsAny(c.Method, " \t\r\n") {
		issues = append(issues, fmt.Sprintf("method %q is not a valid token", c.Method))
	}
	for k, v := range c.Headers {
		if k == "" || strings.ContainsAny(k, ": \t\r\n") {
			issues = append(issues, fmt.Sprintf("header name %q is invalid", k))
		}
		if strings.ContainsAny(v, "\r\n") {
			issues = append(issues, fmt.Sprintf("header %s must not contain line breaks", k))
		}
	}
	if c.Body != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body_file cannot both be provided")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be at least 1")
	}
	if c.Total < 0 {
		issues = append(issues, "total must be non-negative")
	}
	if c.Interval < 0 {
		issues = append(issues, "interval must be non-negative")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be positive")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be non-negative")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		issues = append(issues, err.Error())
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		issues = append(issues, err.Error())
	}
	if c.JSONOutput && c.YAMLOutput {
		issues = append(issues, "json_output and yaml_output are mutually exclusive")
	}
	if c.Dashboard && (c.JSONOutput || c.YAMLOutput) {
		issues = append(issues, "dashboard cannot be combined with json_output or yaml_output")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate %g must be between 0 and 1", c.Tracing.SampleRate))
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// LoadBody returns the request body. It is nil when neither body nor
// body_file is set, so no Content-Length is sent.
func (c Config) LoadBody() ([]byte, error) {
	if c.Body != "" {
		return []byte(c.Body), nil
	}
	path := strings.TrimSpace(c.BodyFile)
	if path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("body file %q is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	return data, nil
}

// Target builds the shared request target.
func (c Config) Target() (rawhttp.Target, error) {
	body, err := c.LoadBody()
	if err != nil {
		return rawhttp.Target{}, err
	}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	return rawhttp.Target{
		Host:    strings.TrimSpace(c.Host),
		Port:    c.Port,
		UseTLS:  c.HTTPS,
		Path:    c.Path,
		Method:  c.Method,
		Headers: headers,
		Body:    body,
	}, nil
}

// RunConfig converts the configuration into the engine's run input.
func (c Config) RunConfig() (runner.Config, error) {
	target, err := c.Target()
	if err != nil {
		return runner.Config{}, err
	}
	return runner.Config{
		Target:            target,
		Concurrency:       c.Concurrency,
		TotalRequests:     c.Total,
		Timeout:           c.Timeout,
		InterRequestDelay: c.Interval,
		RatePerSecond:     c.Rate,
	}, nil
}

// TLSConfig returns the client TLS settings, or nil for the defaults.
func (c Config) TLSConfig() *tls.Config {
	if !c.Insecure {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed targets
}

// ApplyTLSPort switches the untouched default port to 443 for HTTPS.
func (c *Config) ApplyTLSPort() {
	if c.HTTPS && c.Port == DefaultPort {
		c.Port = DefaultTLSPort
	}
}
