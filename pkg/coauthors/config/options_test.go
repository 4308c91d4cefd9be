package config

import (
	"context"
	"testing"
)

func TestDefaultsRequireAuthSecret(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Fatal("expected error for jwt mode without secret, got nil")
	}
}

func TestWithPort(t *testing.T) {
	cfg, err := Load(WithoutAuth(), WithPort("9090"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got: %s", cfg.Port)
	}
	if cfg.APINamespace != "coauthors/v1" {
		t.Errorf("expected default namespace, got: %s", cfg.APINamespace)
	}
	if cfg.RequiredCapability != "list_users" {
		t.Errorf("expected default capability list_users, got: %s", cfg.RequiredCapability)
	}
}

func TestWithPortEmpty(t *testing.T) {
	if _, err := Load(WithoutAuth(), WithPort("")); err == nil {
		t.Error("expected error for empty port, got nil")
	}
}

func TestAuthModes(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		wantMode  string
		wantError bool
	}{
		{"jwt", []Option{WithJWTAuth("secret")}, AuthModeJWT, false},
		{"jwt empty secret", []Option{WithJWTAuth("")}, "", true},
		{"apikey", []Option{WithAPIKeyAuth("abc123")}, AuthModeAPIKey, false},
		{"none in development", []Option{WithoutAuth()}, AuthModeNone, false},
		{"none in production", []Option{WithEnvironment("production"), WithoutAuth()}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.opts...)
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if cfg.AuthMode != tt.wantMode {
				t.Errorf("expected auth mode %s, got: %s", tt.wantMode, cfg.AuthMode)
			}
		})
	}
}

func TestWithDatabase(t *testing.T) {
	tests := []struct {
		name      string
		dbType    string
		url       string
		wantError bool
	}{
		{"memory valid", "memory", "", false},
		{"postgres valid", "postgres", "postgresql://localhost/test", false},
		{"postgres missing url", "postgres", "", true},
		{"invalid type", "mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(WithoutAuth(), WithDatabase(tt.dbType, tt.url))
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if cfg.DatabaseType != tt.dbType {
				t.Errorf("expected database type %s, got: %s", tt.dbType, cfg.DatabaseType)
			}
		})
	}
}

func TestWithSearchLimit(t *testing.T) {
	cfg, err := Load(WithoutAuth(), WithSearchLimit(25))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.SearchLimit != 25 {
		t.Errorf("expected search limit 25, got: %d", cfg.SearchLimit)
	}

	if _, err := Load(WithoutAuth(), WithSearchLimit(0)); err == nil {
		t.Error("expected error for zero search limit, got nil")
	}
}

func TestAvatarStorageOptions(t *testing.T) {
	cfg, err := Load(WithoutAuth(), WithFilesystemAvatarStorage("/srv/avatars", "https://cdn.example.com/avatars"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.AvatarStorage == nil || cfg.AvatarStorage.Type != "fs" {
		t.Fatalf("expected fs avatar storage, got: %+v", cfg.AvatarStorage)
	}
	if got := getString(cfg.AvatarStorage.Config, "url_prefix", ""); got != "https://cdn.example.com/avatars" {
		t.Errorf("expected url prefix, got: %s", got)
	}

	if _, err := Load(WithoutAuth(), WithS3AvatarStorage("", "")); err == nil {
		t.Error("expected error for empty bucket, got nil")
	}
}

func TestBuildServiceMemory(t *testing.T) {
	cfg, err := Load(WithoutAuth(), WithMemoryAvatarStorage(), WithGravatar(64, "identicon"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	svc, closeFn, err := cfg.BuildService(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer closeFn()
	if svc == nil {
		t.Fatal("expected service, got nil")
	}
}

func TestBuildServiceRejectsBadEventSink(t *testing.T) {
	cfg, err := Load(WithoutAuth(), WithEventSink("://bad"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if _, _, err := cfg.BuildService(context.Background(), nil); err == nil {
		t.Error("expected error for invalid event sink URL, got nil")
	}
}

func TestGetters(t *testing.T) {
	m := map[string]interface{}{"s": "v", "b": "true", "i": "42", "f": float64(7)}
	if getString(m, "s", "") != "v" {
		t.Error("getString failed")
	}
	if !getBool(m, "b", false) {
		t.Error("getBool failed to parse string")
	}
	if getInt(m, "i", 0) != 42 || getInt(m, "f", 0) != 7 || getInt(m, "missing", 3) != 3 {
		t.Error("getInt failed")
	}
}
