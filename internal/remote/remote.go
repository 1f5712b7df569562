// Package remote accepts load test triggers over a websocket connection.
//
// Every text message of the form
//
//	{"task":"loadtest","params":{"host":"example.com","port":443,"use_ssl":true,...}}
//
// starts one run with the params applied on top of the server's base
// configuration. Runs are serialized; messages with any other task are ignored.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/torosent/flood/internal/config"
	"github.com/torosent/flood/internal/runner"
)

// TaskLoadTest is the only task name that triggers a run.
const TaskLoadTest = "loadtest"

// RunFunc executes one validated configuration.
type RunFunc func(ctx context.Context, cfg config.Config) (runner.Result, error)

// Ack is the reply written after each triggered run.
type Ack struct {
	RunID     string `json:"run_id,omitempty"`
	Successes int64  `json:"successes"`
	Failures  int64  `json:"failures"`
	Skipped   int    `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Server upgrades HTTP requests to websocket sessions and runs triggers.
type Server struct {
	base     config.Config
	run      RunFunc
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	runMu    sync.Mutex
	ctx      context.Context
}

// NewServer returns a server applying triggers to base.
func NewServer(base config.Config, run RunFunc, logger zerolog.Logger) *Server {
	return &Server{
		base:   base,
		run:    run,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx: context.Background(),
	}
}

// Handler mounts the server at path.
func (s *Server) Handler(path string) http.Handler {
	if path == "" {
		path = config.DefaultRemotePath
	}
	mux := http.NewServeMux()
	mux.Handle(path, s)
	return mux
}

// ListenAndServe serves on addr until ctx is canceled. Runs in progress
// observe the same cancellation.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	s.ctx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(path),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("path", path).Msg("remote trigger listener started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown remote listener: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("websocket session ended")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		ack, ok := s.handle(data)
		if !ok {
			continue
		}
		if err := conn.WriteJSON(ack); err != nil {
			s.logger.Warn().Err(err).Msg("failed to write trigger ack")
			return
		}
	}
}

// handle runs one trigger. ok is false for messages that are not load test
// triggers.
func (s *Server) handle(data []byte) (Ack, bool) {
	params, ok, err := ParseTrigger(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("malformed trigger")
		return Ack{Error: err.Error()}, true
	}
	if !ok {
		return Ack{}, false
	}

	cfg, err := Apply(s.base, params)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejected trigger params")
		return Ack{Error: err.Error()}, true
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	result, err := s.run(s.ctx, cfg)
	if err != nil {
		s.logger.Error().Err(err).Str("host", cfg.Host).Msg("triggered run failed")
		return Ack{RunID: result.ID, Error: err.Error()}, true
	}
	return Ack{
		RunID:     result.ID,
		Successes: result.Successes,
		Failures:  result.Failures,
		Skipped:   result.Skipped,
	}, true
}

// ParseTrigger extracts the params object from a trigger message. ok is
// false when the message names a different task.
func ParseTrigger(data []byte) (gjson.Result, bool, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, false, errors.New("trigger is not valid JSON")
	}
	msg := gjson.ParseBytes(data)
	if msg.Get("task").String() != TaskLoadTest {
		return gjson.Result{}, false, nil
	}
	params := msg.Get("params")
	if !params.IsObject() {
		return gjson.Result{}, false, errors.New("trigger params must be an object")
	}
	return params, true, nil
}

// Apply overlays trigger params on a copy of base. Absent params keep the
// base value; interval is given in seconds.
func Apply(base config.Config, params gjson.Result) (config.Config, error) {
	cfg := base
	cfg.Headers = make(map[string]string, len(base.Headers))
	for k, v := range base.Headers {
		cfg.Headers[k] = v
	}

	var issues []error
	str := func(key string, dst *string) {
		if v := params.Get(key); v.Exists() {
			if v.Type != gjson.String {
				issues = append(issues, fmt.Errorf("%s must be a string", key))
				return
			}
			*dst = v.String()
		}
	}
	num := func(key string, dst *int) {
		if v := params.Get(key); v.Exists() {
			if v.Type != gjson.Number || v.Num != float64(int(v.Num)) {
				issues = append(issues, fmt.Errorf("%s must be an integer", key))
				return
			}
			*dst = int(v.Int())
		}
	}
	flag := func(key string, dst *bool) {
		if v := params.Get(key); v.Exists() {
			if !v.IsBool() {
				issues = append(issues, fmt.Errorf("%s must be a boolean", key))
				return
			}
			*dst = v.Bool()
		}
	}

	str("host", &cfg.Host)
	str("path", &cfg.Path)
	num("port", &cfg.Port)
	flag("use_ssl", &cfg.HTTPS)
	num("concurrency", &cfg.Concurrency)
	num("total_requests", &cfg.Total)
	flag("verbose", &cfg.Verbose)
	if v := params.Get("interval"); v.Exists() {
		if v.Type != gjson.Number {
			issues = append(issues, errors.New("interval must be a number of seconds"))
		} else {
			cfg.Interval = time.Duration(v.Float() * float64(time.Second))
		}
	}

	if len(issues) > 0 {
		return config.Config{}, errors.Join(issues...)
	}
	cfg.ApplyTLSPort()
	return cfg, nil
}
