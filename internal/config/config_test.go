package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", c.Server.Port)
	}
	if c.Store.Backend != BackendSQLite || c.Store.SQLitePath != "goaltracker.db" {
		t.Errorf("Store = %+v", c.Store)
	}
	if c.Jobs.Workers != 1 {
		t.Errorf("Jobs.Workers = %d, want 1", c.Jobs.Workers)
	}
	if c.TokenTTL() != 24*time.Hour {
		t.Errorf("TokenTTL = %v", c.TokenTTL())
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "goals.yaml", `
server:
  port: 9000
store:
  backend: memory
timezone: UTC
log:
  level: debug
`)
	t.Setenv("GOALS_SERVER_PORT", "9100")
	t.Setenv("GOALS_AUTH_SECRET", "from-env")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", c.Server.Port)
	}
	if c.Store.Backend != BackendMemory {
		t.Errorf("Store.Backend = %q, want memory", c.Store.Backend)
	}
	if c.Auth.Secret != "from-env" {
		t.Errorf("Auth.Secret = %q", c.Auth.Secret)
	}
	if c.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", c.Log.Level)
	}
	loc, err := c.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "GOALS_NOTION_TOKEN=secret-from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("GOALS_NOTION_TOKEN") })

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Notion.Token != "secret-from-dotenv" {
		t.Errorf("Notion.Token = %q", c.Notion.Token)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"firestore without project", func(c *Config) { c.Store.Backend = BackendFirestore }},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"no workers", func(c *Config) { c.Jobs.Workers = 0 }},
		{"bad timezone", func(c *Config) { c.TimeZone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Store: StoreConfig{Backend: BackendSQLite, SQLitePath: "x.db"},
				Jobs:  JobsConfig{Workers: 1},
			}
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
