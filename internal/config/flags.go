package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const usageLine = "flood <host> [port] [https] [path] [concurrency] [total] [interval] [verbose] [flags]"

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           usageLine,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("host", "", "Target host name or IP address")
	flags.IntP("port", "p", DefaultPort, "Target port (443 is used for --https when left at 80)")
	flags.Bool("https", false, "Wrap each connection in TLS")
	flags.String("path", DefaultPath, "Request path")
	flags.StringP("method", "X", DefaultMethod, "HTTP method to use")
	flags.StringSliceP("header", "H", nil, "Additional request header in key=value form")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")
	flags.BoolP("insecure", "k", false, "Skip TLS certificate verification")

	// Load control flags
	flags.IntP("concurrency", "c", DefaultConcurrency, "Number of concurrent workers")
	flags.IntP("total", "n", DefaultTotal, "Total number of requests to send")
	flags.DurationP("interval", "i", 0, "Pause each worker takes after a request (e.g. 100ms)")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout covering connect, write and read")
	flags.IntP("rate", "r", 0, "Global requests per second limit (0 means unlimited)")

	// Output flags
	flags.BoolP("verbose", "v", false, "Log request headers and print response samples")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.Bool("log-errors", false, "Log each failed request")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("yaml-output", false, "Emit YAML formatted output")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.String("xlsx-output", "", "Generate an Excel report to the specified file path")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :8000)")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'latency:p95 < 500')")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (host:port)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported to the collector")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Use a plaintext connection to the collector")
	flags.Bool("tracing-propagate", true, "Send traceparent headers with each request")

	// Remote control flags
	flags.String("listen", "", "Address the remote trigger listener binds (serve mode)")
	flags.String("remote-path", DefaultRemotePath, "WebSocket path of the remote trigger listener")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from positional arguments, the environment and the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val string
		val, err = fs.GetString(name)
		*dst = strings.TrimSpace(val)
	}
	integer := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetInt(name)
	}
	boolean := func(name string, dst *bool) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetBool(name)
	}

	str("host", &cfg.Host)
	integer("port", &cfg.Port)
	boolean("https", &cfg.HTTPS)
	str("path", &cfg.Path)
	str("method", &cfg.Method)
	boolean("insecure", &cfg.Insecure)
	integer("concurrency", &cfg.Concurrency)
	integer("total", &cfg.Total)
	integer("rate", &cfg.Rate)
	boolean("verbose", &cfg.Verbose)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	boolean("log-errors", &cfg.LogErrors)
	boolean("json-output", &cfg.JSONOutput)
	boolean("yaml-output", &cfg.YAMLOutput)
	str("html-output", &cfg.HTMLOutput)
	str("xlsx-output", &cfg.XLSXOutput)
	boolean("dashboard", &cfg.Dashboard)
	str("metrics-addr", &cfg.MetricsAddr)
	str("tracing-endpoint", &cfg.Tracing.Endpoint)
	str("tracing-protocol", &cfg.Tracing.Protocol)
	str("tracing-service-name", &cfg.Tracing.ServiceName)
	boolean("tracing-insecure", &cfg.Tracing.Insecure)
	str("listen", &cfg.Remote.Listen)
	str("remote-path", &cfg.Remote.Path)
	if err != nil {
		return err
	}

	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
		cfg.BodyFile = ""
	}
	if fs.Changed("body-file") {
		val, err := fs.GetString("body-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = strings.TrimSpace(val)
		cfg.Body = ""
	}
	if fs.Changed("interval") {
		val, err := fs.GetDuration("interval")
		if err != nil {
			return err
		}
		cfg.Interval = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	return nil
}
