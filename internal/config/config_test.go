package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("環境変数がない場合はデフォルト値になること", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("PORT", "")
		cfg, err := Load(viper.New())
		require.NoError(t, err)

		assert.Empty(t, cfg.GeminiAPIKey)
		assert.Equal(t, DefaultPort, cfg.Port)
		assert.Equal(t, "generated", cfg.ImagesDir)
		assert.Equal(t, "library", cfg.LibraryDir)
		assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
		assert.Equal(t, ":3001", cfg.Addr())
	})

	t.Run("環境変数で上書きできること", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "  secret  ")
		t.Setenv("PORT", "8080")
		t.Setenv("IMAGES_DIR", "/tmp/panels")
		t.Setenv("SESSION_TTL", "30m")
		t.Setenv("IMAGE_GEMINI_MODEL", "image-model-x")

		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "secret", cfg.GeminiAPIKey)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "/tmp/panels", cfg.ImagesDir)
		assert.Equal(t, 30*time.Minute, cfg.SessionTTL)

		wc := cfg.Workflow()
		assert.Equal(t, "secret", wc.GeminiAPIKey)
		assert.Equal(t, "image-model-x", wc.ImageModel)
		assert.Equal(t, "/tmp/panels", wc.ImagesDir)
	})

	t.Run("不正なポートはエラーになること", func(t *testing.T) {
		v := viper.New()
		v.Set(KeyPort, 70000)
		_, err := Load(v)
		assert.Error(t, err)
	})
}
