package protection

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProvider(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestLoadProviders_SkipsBrokenFiles(t *testing.T) {
	f := newFixture(t, nil)
	dir := t.TempDir()
	writeProvider(t, dir, "a.hcl", `provider {
  id     = "good"
  bank   = "memory"
  plugin = ["recorder"]
}`)
	writeProvider(t, dir, "b.hcl", `provider {
  id     = "no-bank"
  plugin = ["recorder"]
}`)
	writeProvider(t, dir, "c.hcl", `provider {`)
	writeProvider(t, dir, "d.hcl", `provider {
  id   = "good"
  bank = "memory"
}`)
	writeProvider(t, dir, "notes.txt", `provider { id = "ignored" }`)

	r, err := LoadProviders(context.Background(), dir, f.deps)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 1, r.Len())
	p, err := r.ShowProvider("good")
	require.NoError(t, err)
	assert.Equal(t, []string{nodeType}, p.SupportedTypes())
}

func TestLoadProviders_MissingDir(t *testing.T) {
	f := newFixture(t, nil)

	_, err := LoadProviders(context.Background(), filepath.Join(t.TempDir(), "nope"), f.deps)
	assert.ErrorContains(t, err, "failed to scan provider config dir")
}

func TestProviderRegistry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := NewProviderRegistry()

	for _, id := range []string{"zeta", "alpha"} {
		p, err := NewProvider(ctx, Config{ID: id, Bank: "memory"}, f.deps)
		require.NoError(t, err)
		require.NoError(t, r.Add(p))
	}
	dup, err := NewProvider(ctx, Config{ID: "alpha", Bank: "memory"}, f.deps)
	require.NoError(t, err)
	assert.ErrorContains(t, r.Add(dup), "provider 'alpha' already loaded")

	var ids []string
	for _, p := range r.ListProviders() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"alpha", "zeta"}, ids)

	_, err = r.ShowProvider("beta")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	assert.NoError(t, r.Close())
}
