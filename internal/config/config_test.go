package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test; t.Chdir needs Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err, "missing config file must not be an error")

	assert.Equal(t, 100, cfg.Freshdesk.PerPage)
	assert.Equal(t, "FreshdeskTickets", cfg.SharePoint.BaseFolder)
	assert.Equal(t, int64(4*1024*1024), cfg.SharePoint.ChunkThreshold)
	assert.Equal(t, 2*1024*1024, cfg.SharePoint.ChunkSize)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "1s", cfg.Retry.InitialBackoff)
	assert.Equal(t, "30s", cfg.Retry.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Derived from data_dir when not set explicitly
	assert.Equal(t, "./data/tickets", cfg.Storage.TicketsDir)
	assert.Equal(t, "./data/attachments", cfg.Storage.AttachmentsDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())
	t.Setenv("FSMIG_FRESHDESK_DOMAIN", "acme.freshdesk.com")
	t.Setenv("FSMIG_FRESHDESK_API_KEY", "secret")
	t.Setenv("FSMIG_SHAREPOINT_SITE_URL", "https://acme.sharepoint.com/sites/helpdesk")
	t.Setenv("FSMIG_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acme.freshdesk.com", cfg.Freshdesk.Domain)
	assert.Equal(t, "secret", cfg.Freshdesk.APIKey)
	assert.Equal(t, "https://acme.sharepoint.com/sites/helpdesk", cfg.SharePoint.SiteURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	chdir(t, dir)

	content := `
freshdesk:
  domain: acme.freshdesk.com
  per_page: 50
storage:
  data_dir: /var/lib/migrator
  tickets_dir: /mnt/tickets
`
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acme.freshdesk.com", cfg.Freshdesk.Domain)
	assert.Equal(t, 50, cfg.Freshdesk.PerPage)

	// Explicit tickets_dir wins; attachments_dir still derived
	assert.Equal(t, "/mnt/tickets", cfg.Storage.TicketsDir)
	assert.Equal(t, "/var/lib/migrator/attachments", cfg.Storage.AttachmentsDir)
}

func TestValidateFreshdesk(t *testing.T) {
	tests := []struct {
		name    string
		cfg     FreshdeskConfig
		wantErr string
	}{
		{"valid", FreshdeskConfig{Domain: "acme.freshdesk.com", APIKey: "k", PerPage: 100}, ""},
		{"missing domain", FreshdeskConfig{APIKey: "k"}, "domain is required"},
		{"missing api key", FreshdeskConfig{Domain: "acme.freshdesk.com"}, "API key is required"},
		{"per_page too large", FreshdeskConfig{Domain: "d", APIKey: "k", PerPage: 200}, "per_page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Freshdesk: tt.cfg}
			err := cfg.ValidateFreshdesk()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSharePoint(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SharePointConfig
		wantErr string
	}{
		{"valid", SharePointConfig{SiteURL: "https://x.sharepoint.com/sites/y", Username: "u", Password: "p"}, ""},
		{"missing site url", SharePointConfig{Username: "u", Password: "p"}, "site URL is required"},
		{"missing username", SharePointConfig{SiteURL: "https://x", Password: "p"}, "username is required"},
		{"missing password", SharePointConfig{SiteURL: "https://x", Username: "u"}, "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{SharePoint: tt.cfg}
			err := cfg.ValidateSharePoint()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CoversBothEnds(t *testing.T) {
	cfg := &Config{
		Freshdesk:  FreshdeskConfig{Domain: "acme.freshdesk.com", APIKey: "k"},
		SharePoint: SharePointConfig{SiteURL: "https://x", Username: "u", Password: "p"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.SharePoint.Password = ""
	assert.Error(t, cfg.Validate())
}
