package cli

import (
	"io"
	"strings"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", "pool_abc123", false},
		{"empty", "", true},
		{"space", "pool abc", true},
		{"tab", "pool\tabc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestLoginSavesKey(t *testing.T) {
	isolate(t)
	url := startServer(t, "pool_goodkey")

	if err := runLogin(t.Context(), strings.NewReader("pool_goodkey\n"), io.Discard, url); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "pool_goodkey" || cfg.ServerURL != url {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoginKeepsOtherSettings(t *testing.T) {
	isolate(t)
	if err := saveConfig(CLIConfig{Timezone: "America/Sao_Paulo"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	url := startServer(t, "k1")

	// No trailing newline: input ends at EOF.
	if err := runLogin(t.Context(), strings.NewReader("k1"), io.Discard, url); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timezone != "America/Sao_Paulo" {
		t.Errorf("timezone = %q, want preserved", cfg.Timezone)
	}
}

func TestLoginRejectsWrongKey(t *testing.T) {
	isolate(t)
	url := startServer(t, "right")

	if err := runLogin(t.Context(), strings.NewReader("wrong\n"), io.Discard, url); err == nil {
		t.Fatal("expected error for a key the server rejects")
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != "" {
		t.Errorf("api key = %q, want nothing saved", cfg.APIKey)
	}
}

func TestLoginRequiresServer(t *testing.T) {
	isolate(t)

	if err := runLogin(t.Context(), strings.NewReader("key\n"), io.Discard, ""); err == nil {
		t.Fatal("expected error without a server URL")
	}
}
