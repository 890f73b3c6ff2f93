package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache placed in front of the
// public video listing. When Enabled is false or no Redis client is
// available the middleware is a pass-through.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

func loadCacheConfig(e *env) CacheConfig {
	return CacheConfig{
		Enabled:      e.boolean("CACHE_ENABLED", true),
		Methods:      parseMethods(e.str("CACHE_METHODS", "GET")),
		TTL:          e.duration("CACHE_TTL", 30*time.Second),
		KeyStrategy:  e.str("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       e.str("CACHE_PREFIX", "cache"),
		MaxBodyBytes: e.integer("CACHE_MAX_BODY_BYTES", 1048576),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
