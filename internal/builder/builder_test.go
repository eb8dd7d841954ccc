package builder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	return config.Config{
		Port:        config.DefaultPort,
		ImagesDir:   filepath.Join(root, "generated"),
		LibraryDir:  filepath.Join(root, "library"),
		SettingsDir: filepath.Join(root, "data"),
		SessionTTL:  time.Hour,
	}
}

func TestBuildApp(t *testing.T) {
	app, err := BuildApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.False(t, app.Manager.GeminiConfigured())
	assert.DirExists(t, app.Config.LibraryDir)

	rec := httptest.NewRecorder()
	app.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildPipeline(t *testing.T) {
	t.Run("API キーがない場合はエラーになること", func(t *testing.T) {
		_, err := BuildPipeline(context.Background(), testConfig(t), t.TempDir())
		assert.ErrorIs(t, err, workflow.ErrAPIKeyMissing)
	})
}
