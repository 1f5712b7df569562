package remote_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/torosent/flood/internal/config"
	"github.com/torosent/flood/internal/remote"
	"github.com/torosent/flood/internal/runner"
)

func baseConfig() config.Config {
	cfg := config.Defaults()
	cfg.Host = "localhost"
	return cfg
}

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		ok      bool
		wantErr bool
	}{
		{"loadtest", `{"task":"loadtest","params":{"host":"a"}}`, true, false},
		{"other task", `{"task":"scan","params":{}}`, false, false},
		{"missing task", `{"params":{}}`, false, false},
		{"params not object", `{"task":"loadtest","params":[1]}`, false, true},
		{"invalid json", `{"task":`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := remote.ParseTrigger([]byte(tt.msg))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTrigger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.ok {
				t.Errorf("ParseTrigger() ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestApply(t *testing.T) {
	base := baseConfig()
	base.Headers = map[string]string{"X-Team": "perf"}
	params := gjson.Parse(`{"host":"example.com","use_ssl":true,"path":"/health","concurrency":4,"total_requests":40,"interval":0.25,"verbose":true}`)

	cfg, err := remote.Apply(base, params)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.Host != "example.com" || cfg.Path != "/health" || !cfg.HTTPS || !cfg.Verbose {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Port != config.DefaultTLSPort {
		t.Errorf("Port = %d, want %d", cfg.Port, config.DefaultTLSPort)
	}
	if cfg.Concurrency != 4 || cfg.Total != 40 {
		t.Errorf("concurrency/total = %d/%d", cfg.Concurrency, cfg.Total)
	}
	if cfg.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %s", cfg.Interval)
	}

	cfg.Headers["X-Team"] = "changed"
	if base.Headers["X-Team"] != "perf" {
		t.Error("Apply must not share the base header map")
	}
}

func TestApplyKeepsBaseForAbsentParams(t *testing.T) {
	base := baseConfig()
	base.Port = 8080
	cfg, err := remote.Apply(base, gjson.Parse(`{"total_requests":5}`))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != 8080 || cfg.Concurrency != config.DefaultConcurrency {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestApplyRejectsWrongTypes(t *testing.T) {
	_, err := remote.Apply(baseConfig(), gjson.Parse(`{"port":"eighty","use_ssl":"yes","concurrency":1.5}`))
	if err == nil {
		t.Fatal("expected type errors")
	}
	for _, want := range []string{"port", "use_ssl", "concurrency"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

type recordingRun struct {
	mu      sync.Mutex
	configs []config.Config
	err     error
}

func (r *recordingRun) run(_ context.Context, cfg config.Config) (runner.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	if r.err != nil {
		return runner.Result{}, r.err
	}
	return runner.Result{ID: "run-" + cfg.Host, Successes: int64(cfg.Total), Failures: 0}, nil
}

func dial(t *testing.T, srv *remote.Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler(config.DefaultRemotePath))
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + config.DefaultRemotePath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestServerRunsTriggers(t *testing.T) {
	rec := &recordingRun{}
	conn := dial(t, remote.NewServer(baseConfig(), rec.run, zerolog.Nop()))

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"task":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"task":"loadtest","params":{"host":"target","total_requests":7}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ack remote.Ack
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.RunID != "run-target" || ack.Successes != 7 || ack.Error != "" {
		t.Errorf("unexpected ack %+v", ack)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.configs) != 1 {
		t.Fatalf("expected exactly one run, got %d", len(rec.configs))
	}
}

func TestServerRejectsInvalidParams(t *testing.T) {
	rec := &recordingRun{}
	conn := dial(t, remote.NewServer(baseConfig(), rec.run, zerolog.Nop()))

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"task":"loadtest","params":{"concurrency":0}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var ack remote.Ack
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if !strings.Contains(ack.Error, "concurrency") {
		t.Errorf("expected validation error, got %+v", ack)
	}
	if len(rec.configs) != 0 {
		t.Error("invalid params must not start a run")
	}
}

func TestServerReportsRunErrors(t *testing.T) {
	rec := &recordingRun{err: errors.New("resolve failed")}
	conn := dial(t, remote.NewServer(baseConfig(), rec.run, zerolog.Nop()))

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"task":"loadtest","params":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var ack remote.Ack
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Error != "resolve failed" {
		t.Errorf("ack = %+v", ack)
	}
}
