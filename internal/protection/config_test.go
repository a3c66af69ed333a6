package protection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderConfig(t *testing.T) {
	src := `
provider {
  id          = "cf56bd3e"
  name        = "OS Infra Provider"
  description = "Saves resource metadata to a local bank"
  bank        = "local"
  plugin      = ["resource-metadata"]
  bank_options = {
    root     = "/var/lib/protectgrid"
    shards   = 4
    readonly = false
  }
}
`
	cfg, err := ParseProviderConfig("infra.hcl", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, Config{
		ID:          "cf56bd3e",
		Name:        "OS Infra Provider",
		Description: "Saves resource metadata to a local bank",
		Bank:        "local",
		Plugins:     []string{"resource-metadata"},
		BankOptions: bank.Options{"root": "/var/lib/protectgrid", "shards": "4", "readonly": "false"},
	}, cfg)
}

func TestParseProviderConfig_Minimal(t *testing.T) {
	cfg, err := ParseProviderConfig("min.hcl", []byte(`provider { id = "p" }`))
	require.NoError(t, err)

	assert.Equal(t, "p", cfg.ID)
	assert.Empty(t, cfg.Bank)
	assert.Empty(t, cfg.Plugins)
	assert.Empty(t, cfg.BankOptions)
}

func TestParseProviderConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `provider {`, "failed to parse provider file bad.hcl"},
		{"no block", `other = 1`, "has no provider block"},
		{"missing id", `provider { bank = "local" }`, "failed to decode provider file bad.hcl"},
		{"options not a map", `provider {
  id           = "p"
  bank_options = ["a"]
}`, "bank_options must be a map of strings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProviderConfig("bad.hcl", []byte(tt.src))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadProviderConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`provider {
  id   = "p"
  bank = "memory"
}`), 0o644))

	cfg, err := LoadProviderConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Bank)

	_, err = LoadProviderConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
