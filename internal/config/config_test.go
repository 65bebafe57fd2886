package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "REQUEST_TIMEOUT", "ARTIFACT_STORE", "DEFAULT_PROFILE", "DATABASE_PATH"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("ServerAddress() = %q", cfg.ServerAddress())
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if cfg.DefaultProfile != "standard" {
		t.Errorf("DefaultProfile = %q", cfg.DefaultProfile)
	}
	if cfg.ArtifactStore != ArtifactStoreLocal {
		t.Errorf("ArtifactStore = %q", cfg.ArtifactStore)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", " 9090 ")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("ARTIFACT_STORE", "NONE")
	t.Setenv("DEFAULT_PROFILE", "sensitive")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:9090" {
		t.Errorf("ServerAddress() = %q", cfg.ServerAddress())
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if cfg.ArtifactStore != ArtifactStoreNone {
		t.Errorf("ArtifactStore = %q", cfg.ArtifactStore)
	}
	if cfg.DefaultProfile != "sensitive" {
		t.Errorf("DefaultProfile = %q", cfg.DefaultProfile)
	}
}

func TestLoadFromEnv_RemoteImagePolicy(t *testing.T) {
	t.Setenv("IMAGE_URL_SCHEMES", "HTTPS")
	t.Setenv("IMAGE_URL_HOSTS", " uploads.example.com, ,*.CDN.example.net ")
	t.Setenv("MAX_IMAGE_PIXELS", "1000000")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.MaxImagePixels != 1000000 {
		t.Errorf("MaxImagePixels = %d", cfg.MaxImagePixels)
	}

	policy := cfg.URLPolicy()
	if len(policy.Schemes) != 1 || policy.Schemes[0] != "https" {
		t.Errorf("Schemes = %v", policy.Schemes)
	}
	if len(policy.Hosts) != 2 || policy.Hosts[0] != "uploads.example.com" || policy.Hosts[1] != "*.cdn.example.net" {
		t.Errorf("Hosts = %v", policy.Hosts)
	}
}

func TestLoadFromEnv_DefaultPolicyAdmitsAnyHost(t *testing.T) {
	t.Setenv("IMAGE_URL_SCHEMES", "")
	t.Setenv("IMAGE_URL_HOSTS", "")
	t.Setenv("MAX_IMAGE_PIXELS", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.MaxImagePixels != 40_000_000 {
		t.Errorf("MaxImagePixels = %d", cfg.MaxImagePixels)
	}
	if len(cfg.ImageURLHosts) != 0 {
		t.Errorf("ImageURLHosts = %v, want none", cfg.ImageURLHosts)
	}
	if len(cfg.ImageURLSchemes) != 2 {
		t.Errorf("ImageURLSchemes = %v", cfg.ImageURLSchemes)
	}
}

func TestLoadFromEnv_RejectsUnknownScheme(t *testing.T) {
	t.Setenv("IMAGE_URL_SCHEMES", "https,file")
	if _, err := LoadFromEnv(); err == nil {
		t.Error("file scheme should be rejected")
	}
}

func TestLoadFromEnv_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("ANALYSIS_TIMEOUT", "-3s")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.AnalysisTimeout != 10*time.Second {
		t.Errorf("AnalysisTimeout = %s, want default", cfg.AnalysisTimeout)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               "8080",
			RequestTimeout:     time.Second,
			ImageFetchTimeout:  time.Second,
			AnalysisTimeout:    time.Second,
			MaxRequestBodySize: 1,
			MaxImagePixels:     1,
			DatabasePath:       "x.db",
			ArtifactStore:      ArtifactStoreLocal,
			ArtifactDir:        "uploads",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Port = "http" }, true},
		{"port out of range", func(c *Config) { c.Port = "70000" }, true},
		{"zero body size", func(c *Config) { c.MaxRequestBodySize = 0 }, true},
		{"zero pixel cap", func(c *Config) { c.MaxImagePixels = 0 }, true},
		{"ftp scheme", func(c *Config) { c.ImageURLSchemes = []string{"https", "ftp"} }, true},
		{"https only", func(c *Config) { c.ImageURLSchemes = []string{"https"} }, false},
		{"empty database", func(c *Config) { c.DatabasePath = " " }, true},
		{"unknown store", func(c *Config) { c.ArtifactStore = "s3" }, true},
		{"azure without key", func(c *Config) { c.ArtifactStore = ArtifactStoreAzure; c.AzureAccount = "acct" }, true},
		{"azure complete", func(c *Config) {
			c.ArtifactStore = ArtifactStoreAzure
			c.AzureAccount = "acct"
			c.AzureKey = "a2V5"
		}, false},
		{"local without dir", func(c *Config) { c.ArtifactDir = "" }, true},
		{"none", func(c *Config) { c.ArtifactStore = ArtifactStoreNone; c.ArtifactDir = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
