package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("should fall back to defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ped", cfg.Format)
		assert.Equal(t, "", cfg.Manifest)
		assert.Equal(t, []string{"00", "NN", "--", ".."}, cfg.Missing)
		assert.Equal(t, "rs429358", cfg.Snp1)
		assert.Equal(t, "rs7412", cfg.Snp2)
		assert.Equal(t, "IID", cfg.SampleColumn)
		assert.False(t, cfg.Gzip)
		assert.False(t, cfg.Annotate)
	})

	t.Run("should read overrides from the environment", func(t *testing.T) {
		t.Setenv("APOE_FORMAT", "raw")
		t.Setenv("APOE_MISSING", "00,??")
		t.Setenv("APOE_GZIP", "true")
		t.Setenv("APOE_MANIFEST", "snps.yaml")
		t.Setenv("APOE_SAMPLE_COLUMN", "sample_id")
		t.Setenv("APOE_ANNOTATE", "1")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "raw", cfg.Format)
		assert.Equal(t, []string{"00", "??"}, cfg.Missing)
		assert.True(t, cfg.Gzip)
		assert.Equal(t, "snps.yaml", cfg.Manifest)
		assert.Equal(t, "sample_id", cfg.SampleColumn)
		assert.True(t, cfg.Annotate)
	})

	t.Run("should reject a malformed boolean", func(t *testing.T) {
		t.Setenv("APOE_GZIP", "sometimes")

		_, err := Load()
		assert.Error(t, err)
	})
}
