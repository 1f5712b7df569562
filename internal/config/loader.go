package config

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. FLOOD_CONCURRENCY=50.
const EnvPrefix = "FLOOD"

// envKeys are the settings that may come from the environment.
var envKeys = []string{
	"host", "port", "https", "path", "method", "body", "body_file",
	"concurrency", "total", "interval", "timeout", "rate", "insecure",
	"verbose", "log_level", "log_format", "log_errors", "json_output", "yaml_output",
	"html_output", "xlsx_output", "dashboard", "metrics_addr", "thresholds",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name",
	"tracing.sample_rate", "tracing.insecure", "tracing.propagate",
	"remote.listen", "remote.path",
}

// Loader handles loading configuration from files and command-line arguments.
type Loader struct {
	// AllowEmpty accepts an empty argument list instead of printing help.
	// The serve command uses it since the target arrives later.
	AllowEmpty bool
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments, the environment and configuration
// files to produce a Config. Precedence, lowest first: defaults, config
// file, environment, positional arguments, flags.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" && !l.AllowEmpty {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	cfgViper.SetEnvPrefix(EnvPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(&cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyPositional(&cfg, flagSet.Args()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(&cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	cfg.ApplyTLSPort()

	return &cfg, nil
}

// applyPositional fills the classic argument form
// <host> [port] [https] [path] [concurrency] [total] [interval] [verbose].
// The https and verbose slots accept 0/1 or true/false; interval is seconds.
func applyPositional(cfg *Config, args []string) error {
	if len(args) > 8 {
		return fmt.Errorf("too many arguments: got %d, want at most 8", len(args))
	}
	for i, raw := range args {
		raw = strings.TrimSpace(raw)
		var err error
		switch i {
		case 0:
			cfg.Host = raw
		case 1:
			cfg.Port, err = asInt(raw)
			err = positionalErr("port", err)
		case 2:
			cfg.HTTPS, err = parseFlagWord(raw)
			err = positionalErr("https", err)
		case 3:
			cfg.Path = raw
		case 4:
			cfg.Concurrency, err = asInt(raw)
			err = positionalErr("concurrency", err)
		case 5:
			cfg.Total, err = asInt(raw)
			err = positionalErr("total", err)
		case 6:
			cfg.Interval, err = asDuration(raw)
			err = positionalErr("interval", err)
		case 7:
			cfg.Verbose, err = parseFlagWord(raw)
			err = positionalErr("verbose", err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func positionalErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("argument %s: %w", name, err)
}

// parseFlagWord accepts 0/1, true/false, yes/no and "https".
func parseFlagWord(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "https", "yes", "y", "on":
		return true, nil
	case "no", "n", "off", "http":
		return false, nil
	}
	return asBool(s)
}

// applyConfigSettings applies settings from a config file or the
// environment to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := setting(settings, "host"); ok {
		cfg.Host = strings.TrimSpace(asString(raw))
	}
	if raw, ok := setting(settings, "port"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = val
	}
	if raw, ok := setting(settings, "https", "use_ssl"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("https: %w", err)
		}
		cfg.HTTPS = val
	}
	if val := asString(settings["path"]); val != "" {
		cfg.Path = val
	}
	if val := asString(settings["method"]); val != "" {
		cfg.Method = val
	}
	if raw, ok := setting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}
	if raw, ok := setting(settings, "body"); ok {
		cfg.Body = asString(raw)
	}
	if raw, ok := setting(settings, "bodyfile", "body_file", "body-file"); ok {
		cfg.BodyFile = asString(raw)
	}
	if raw, ok := setting(settings, "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}
	if raw, ok := setting(settings, "total", "total_requests"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		cfg.Total = val
	}
	if raw, ok := setting(settings, "interval"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		cfg.Interval = dur
	}
	if raw, ok := setting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}
	if raw, ok := setting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	bools := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"insecure"}, &cfg.Insecure},
		{[]string{"verbose"}, &cfg.Verbose},
		{[]string{"logerrors", "log_errors", "log-errors"}, &cfg.LogErrors},
		{[]string{"jsonoutput", "json_output", "json-output"}, &cfg.JSONOutput},
		{[]string{"yamloutput", "yaml_output", "yaml-output"}, &cfg.YAMLOutput},
		{[]string{"dashboard"}, &cfg.Dashboard},
	}
	for _, b := range bools {
		if raw, ok := setting(settings, b.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", b.keys[0], err)
			}
			*b.dst = val
		}
	}

	strs := []struct {
		keys []string
		dst  *string
	}{
		{[]string{"loglevel", "log_level", "log-level"}, &cfg.LogLevel},
		{[]string{"logformat", "log_format", "log-format"}, &cfg.LogFormat},
		{[]string{"htmloutput", "html_output", "html-output"}, &cfg.HTMLOutput},
		{[]string{"xlsxoutput", "xlsx_output", "xlsx-output"}, &cfg.XLSXOutput},
		{[]string{"metricsaddr", "metrics_addr", "metrics-addr"}, &cfg.MetricsAddr},
	}
	for _, s := range strs {
		if raw, ok := setting(settings, s.keys...); ok {
			*s.dst = strings.TrimSpace(asString(raw))
		}
	}

	if raw, ok := setting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}
	if raw, ok := setting(settings, "tracing"); ok {
		if err := parseTracing(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}
	if raw, ok := setting(settings, "remote"); ok {
		if err := parseRemote(&cfg.Remote, raw); err != nil {
			return fmt.Errorf("remote: %w", err)
		}
	}

	return nil
}

func parseTracing(dst *TracingConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := setting(settings, "endpoint"); ok {
		dst.Endpoint = asString(raw)
	}
	if raw, ok := setting(settings, "protocol"); ok {
		dst.Protocol = asString(raw)
	}
	if raw, ok := setting(settings, "service_name", "servicename"); ok {
		dst.ServiceName = asString(raw)
	}
	if raw, ok := setting(settings, "sample_rate", "samplerate"); ok {
		if dst.SampleRate, err = asFloat64(raw); err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := setting(settings, "insecure"); ok {
		if dst.Insecure, err = asBool(raw); err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := setting(settings, "propagate"); ok && raw != nil {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		dst.Propagate = &val
	}
	return nil
}

func parseRemote(dst *RemoteConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := setting(settings, "listen"); ok {
		dst.Listen = asString(raw)
	}
	if val := asString(settings["path"]); val != "" {
		dst.Path = val
	}
	return nil
}
