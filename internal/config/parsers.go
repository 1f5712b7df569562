// Package config loads flood settings from positional arguments, flags,
// FLOOD_* environment variables and an optional JSON or YAML file.
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Values below arrive from viper: YAML and JSON decoders produce strings,
// bools, ints, floats, lists and nested tables; the environment only strings.

// setting returns the value of the first key present in settings. Viper
// lowercases keys and nested tables pass through toStringKeyMap, so keys are
// given in lower case.
func setting(settings map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if val, ok := settings[key]; ok {
			return val, true
		}
	}
	return nil, false
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprint(value)
}

// number widens any integer or float kind.
func number(value interface{}) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// blank reports whether value is nil or an all-space string; such values
// leave the zero value in place.
func blank(value interface{}) (string, bool) {
	if value == nil {
		return "", true
	}
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s == ""
}

func asInt(value interface{}) (int, error) {
	s, empty := blank(value)
	switch {
	case empty:
		return 0, nil
	case s != "":
		return strconv.Atoi(s)
	}
	if f, ok := number(value); ok {
		return int(f), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", value)
}

func asFloat64(value interface{}) (float64, error) {
	s, empty := blank(value)
	switch {
	case empty:
		return 0, nil
	case s != "":
		return strconv.ParseFloat(s, 64)
	}
	if f, ok := number(value); ok {
		return f, nil
	}
	return 0, fmt.Errorf("expected a number, got %T", value)
}

func asBool(value interface{}) (bool, error) {
	s, empty := blank(value)
	switch {
	case empty:
		return false, nil
	case s != "":
		return strconv.ParseBool(s)
	}
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected a boolean, got %T", value)
}

// asDuration accepts Go duration strings such as "250ms". Bare numbers,
// quoted or not, are seconds, matching the positional interval slot.
func asDuration(value interface{}) (time.Duration, error) {
	if d, ok := value.(time.Duration); ok {
		return d, nil
	}
	s, empty := blank(value)
	switch {
	case empty:
		return 0, nil
	case s != "":
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return seconds(secs), nil
		}
		return time.ParseDuration(s)
	}
	if secs, ok := number(value); ok {
		return seconds(secs), nil
	}
	return 0, fmt.Errorf("expected a duration, got %T", value)
}

func seconds(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

// table converts a decoded mapping to string keys. YAML v2 style decoders
// produce map[interface{}]interface{}.
func table(value interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	switch v := value.(type) {
	case map[string]interface{}:
		for key, val := range v {
			out[strings.TrimSpace(key)] = val
		}
	case map[interface{}]interface{}:
		for key, val := range v {
			out[strings.TrimSpace(asString(key))] = val
		}
	default:
		return nil, fmt.Errorf("expected a table, got %T", value)
	}
	return out, nil
}

// toStringKeyMap is table with keys lowered, for nested sections such as
// tracing and remote.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	entries, err := table(value)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(entries))
	for key, val := range entries {
		out[strings.ToLower(key)] = val
	}
	return out, nil
}

// asStringMap reads the headers table. Callers canonicalize the names.
func asStringMap(value interface{}) (map[string]string, error) {
	if value == nil {
		return nil, nil
	}
	if m, ok := value.(map[string]string); ok {
		out := make(map[string]string, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}
	entries, err := table(value)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for key, val := range entries {
		if key == "" {
			return nil, fmt.Errorf("header key cannot be empty")
		}
		out[key] = asString(val)
	}
	return out, nil
}

// asStringSlice reads the thresholds list. A lone string is one entry.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = asString(item)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list, got %T", value)
}
