package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// env reads configuration values from a lookup function. Production code uses
// os.LookupEnv; tests pass a map. Missing required keys are collected rather
// than aborting on the first one so a single startup log names all of them.
type env struct {
	lookup  func(string) (string, bool)
	missing []string
	invalid []string
}

func newEnv(lookup func(string) (string, bool)) *env {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &env{lookup: lookup}
}

func (e *env) get(key string) string {
	v, ok := e.lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// must retrieves a required value and records it as missing when empty.
func (e *env) must(key string) string {
	v := e.get(key)
	if v == "" {
		e.missing = append(e.missing, key)
	}
	return v
}

func (e *env) mustDuration(key string) time.Duration {
	s := e.must(key)
	if s == "" {
		return 0
	}
	d, err := parseDuration(s)
	if err != nil || d <= 0 {
		e.invalid = append(e.invalid, fmt.Sprintf("%s=%q", key, s))
		return 0
	}
	return d
}

func (e *env) str(key, def string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return def
}

func (e *env) integer(key string, def int) int {
	v := e.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.invalid = append(e.invalid, fmt.Sprintf("%s=%q", key, v))
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	switch e.get(key) {
	case "":
		return def
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return def
	}
	d, err := parseDuration(v)
	if err != nil {
		e.invalid = append(e.invalid, fmt.Sprintf("%s=%q", key, v))
		return def
	}
	return d
}

func (e *env) err() error {
	var parts []string
	if len(e.missing) > 0 {
		parts = append(parts, "missing required env vars: "+strings.Join(e.missing, ", "))
	}
	if len(e.invalid) > 0 {
		parts = append(parts, "invalid env values: "+strings.Join(e.invalid, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}

// parseDuration accepts Go durations plus a "d" suffix for whole days, so
// "15m", "240h" and "10d" are all valid expiry values.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
