package config

import (
	"testing"
	"time"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		if got := asString(tt.input); got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{uint16(8), 8},
		{" 12 ", 12},
		{"", 0},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
	if _, err := asInt("ten"); err == nil {
		t.Error("asInt(\"ten\") should fail")
	}
	if _, err := asInt(true); err == nil {
		t.Error("asInt(true) should fail")
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{"250ms", 250 * time.Millisecond},
		{"0.5", 500 * time.Millisecond},
		{"2", 2 * time.Second},
		{3, 3 * time.Second},
		{1.5, 1500 * time.Millisecond},
		{time.Minute, time.Minute},
		{nil, 0},
	}
	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %s, want %s", tt.input, got, tt.want)
		}
	}
	if _, err := asDuration("soon"); err == nil {
		t.Error("asDuration(\"soon\") should fail")
	}
}

func TestAsStringMap(t *testing.T) {
	got, err := asStringMap(map[interface{}]interface{}{" accept ": "*/*", "x-retry": 3})
	if err != nil {
		t.Fatalf("asStringMap() error = %v", err)
	}
	if got["accept"] != "*/*" || got["x-retry"] != "3" {
		t.Errorf("asStringMap() = %v", got)
	}
	if _, err := asStringMap(map[string]interface{}{" ": "x"}); err == nil {
		t.Error("empty header key should fail")
	}
	if _, err := asStringMap([]string{"a"}); err == nil {
		t.Error("a list is not a headers table")
	}
}

func TestAsStringSlice(t *testing.T) {
	got, err := asStringSlice([]interface{}{"latency:p95 < 100", 5})
	if err != nil || len(got) != 2 || got[1] != "5" {
		t.Fatalf("asStringSlice() = %q, %v", got, err)
	}
	if got, _ := asStringSlice("failure:rate < 0.1"); len(got) != 1 {
		t.Errorf("single string should become one entry, got %q", got)
	}
	if _, err := asStringSlice(42); err == nil {
		t.Error("asStringSlice(42) should fail")
	}
}

func TestToStringKeyMapLowersKeys(t *testing.T) {
	got, err := toStringKeyMap(map[string]interface{}{"Sample_Rate": 0.5})
	if err != nil {
		t.Fatalf("toStringKeyMap() error = %v", err)
	}
	if got["sample_rate"] != 0.5 {
		t.Errorf("toStringKeyMap() = %v", got)
	}
	if _, err := toStringKeyMap("flat"); err == nil {
		t.Error("a scalar is not a table")
	}
}

func TestParseFlagWord(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"0", false},
		{"https", true},
		{"http", false},
		{"TRUE", true},
		{"no", false},
	}
	for _, tt := range tests {
		got, err := parseFlagWord(tt.in)
		if err != nil {
			t.Fatalf("parseFlagWord(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseFlagWord(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
