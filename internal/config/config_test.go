package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("PERIOD_COPY_THROTTLE_MS", "25")

	cfg, err := Load("testdata/missing.env")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.SQLitePath != "prodtrack.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Period.CopyThrottle != 25*time.Millisecond {
		t.Fatalf("throttle = %v", cfg.Period.CopyThrottle)
	}
	if cfg.Cache.Enabled || cfg.Storage.Enabled() || cfg.WhatsApp.Enabled() || cfg.Sheets.Enabled() {
		t.Fatal("optional integrations must be disabled by default")
	}
	if cfg.Reporting.CompanyName != "S&B Nice Nice Food Valley Ltd." {
		t.Fatalf("company = %q", cfg.Reporting.CompanyName)
	}
}

func TestLoadRejectsBadInteger(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverSQLite)
	t.Setenv("CACHE_TTL_SECONDS", "soon")
	if _, err := Load("testdata/missing.env"); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Store:     StoreConfig{Driver: DriverSQLite, SQLitePath: "x.db"},
			Reporting: ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"no port", func(c *Config) { c.Server.Port = "" }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, false},
		{"mongo without uri", func(c *Config) { c.Store.Driver = DriverMongoDB; c.Store.MongoDB.DBName = "db" }, false},
		{"cache without url", func(c *Config) { c.Cache.Enabled = true }, false},
		{"storage without keys", func(c *Config) { c.Storage.Endpoint = "minio:9000" }, false},
		{"bad timezone", func(c *Config) { c.Reporting.Timezone = "Mars/Base" }, false},
		{"negative throttle", func(c *Config) { c.Period.CopyThrottle = -time.Millisecond }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, ok = %v", err, tt.ok)
			}
		})
	}
}
