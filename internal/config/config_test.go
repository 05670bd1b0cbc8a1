package config

import (
	"strings"
	"testing"
	"time"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(mapLookup(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled without DATABASE_URL")
	}
	if cfg.Upload.MaxFileSize != 104857600 {
		t.Errorf("Upload.MaxFileSize = %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Upload.Timeout != 2*time.Minute {
		t.Errorf("Upload.Timeout = %v", cfg.Upload.Timeout)
	}
	if cfg.Auth.SessionTTL != 12*time.Hour {
		t.Errorf("Auth.SessionTTL = %v", cfg.Auth.SessionTTL)
	}
	if !cfg.Rate.Enabled || cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate = %+v", cfg.Rate)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(mapLookup(map[string]string{
		"DB_URL":                "postgres://localhost/shop",
		"PORT":                  "9090",
		"UPLOAD_MAX_CONCURRENT": "10",
		"LOG_LEVEL":             "debug",
		"TRUSTED_PROXIES":       "10.0.0.0/8, 192.168.0.0/16,",
		"SESSION_TTL":           "30m",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 via PORT", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://localhost/shop" {
		t.Errorf("Database.URL not read from DB_URL")
	}
	if cfg.Upload.MaxConcurrent != 10 {
		t.Errorf("Upload.MaxConcurrent = %d", cfg.Upload.MaxConcurrent)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if got := cfg.Security.TrustedProxies; len(got) != 2 || got[1] != "192.168.0.0/16" {
		t.Errorf("TrustedProxies = %v", got)
	}
	if cfg.Auth.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.Auth.SessionTTL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"SERVER_PORT": "abc"}, "SERVER_PORT"},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}, "SERVER_PORT (70000)"},
		{"bad duration", map[string]string{"UPLOAD_TIMEOUT": "soon"}, "UPLOAD_TIMEOUT"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"two sample sources", map[string]string{"SAMPLES_DIR": "/s", "SAMPLES_BASE_URL": "http://x"}, "at most one"},
		{"login required without url", map[string]string{"AUTH_REQUIRE_LOGIN": "true"}, "AUTH_LOGIN_URL"},
		{"db pool sizes", map[string]string{"DATABASE_URL": "postgres://x", "DB_MAX_CONNS": "2", "DB_MIN_CONNS": "5"}, "DB_MAX_CONNS (2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(mapLookup(tt.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	_, err := LoadFrom(mapLookup(map[string]string{
		"LOG_LEVEL":  "loud",
		"LOG_FORMAT": "xml",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"LOG_LEVEL", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "8181")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
}

func TestString_MasksDatabaseURL(t *testing.T) {
	cfg, err := LoadFrom(mapLookup(map[string]string{
		"DATABASE_URL": "postgres://user:hunter2@db/shop",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	s := cfg.String()
	if strings.Contains(s, "hunter2") {
		t.Errorf("String() leaks credentials: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s", s)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := c.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
	c.Host = ""
	if got := c.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q", got)
	}
}
