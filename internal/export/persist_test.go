package export_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crra-tempo/tempo-client/internal/export"
	"github.com/crra-tempo/tempo-client/pkg/config"
)

func TestDownloadPersister(t *testing.T) {
	dir := t.TempDir()
	p := export.NewDownloadPersister(dir)

	location, err := p.Persist([]byte("payload"), "rapport.xlsx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rapport.xlsx"), location)

	written, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), written)
}

func TestSharePersister(t *testing.T) {
	t.Run("WritesThenHandsOff", func(t *testing.T) {
		dir := t.TempDir()
		var shared string
		p := export.NewSharePersister(dir, func(path string) error {
			shared = path
			return nil
		})

		location, err := p.Persist([]byte("payload"), "rapport.xlsx")
		require.NoError(t, err)
		assert.Equal(t, location, shared)

		written, err := os.ReadFile(location)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), written)
	})

	t.Run("HandoffFailureIsReported", func(t *testing.T) {
		p := export.NewSharePersister(t.TempDir(), func(string) error {
			return assert.AnError
		})
		_, err := p.Persist([]byte("payload"), "rapport.xlsx")
		require.Error(t, err)
		assert.Equal(t, export.MsgShareUnavailable, err.Error())
	})
}

func TestScopedPersister(t *testing.T) {
	t.Run("GrantRequestedOnceThenCached", func(t *testing.T) {
		dir := t.TempDir()
		grants := 0
		p := export.NewScopedPersister(func() (string, error) {
			grants++
			return dir, nil
		})

		for _, name := range []string{"a.xlsx", "b.xlsx"} {
			location, err := p.Persist([]byte("x"), name)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, name), location)
		}
		assert.Equal(t, 1, grants)
	})

	t.Run("DeniedGrant", func(t *testing.T) {
		p := export.NewScopedPersister(func() (string, error) {
			return "", assert.AnError
		})
		_, err := p.Persist([]byte("x"), "a.xlsx")
		require.Error(t, err)
		assert.Equal(t, export.MsgGrantDenied, err.Error())
	})

	t.Run("ConcurrentGrantRefusedOutright", func(t *testing.T) {
		dir := t.TempDir()
		entered := make(chan struct{})
		release := make(chan struct{})
		p := export.NewScopedPersister(func() (string, error) {
			close(entered)
			<-release
			return dir, nil
		})

		done := make(chan error, 1)
		go func() {
			_, err := p.Persist([]byte("x"), "a.xlsx")
			done <- err
		}()

		<-entered
		_, err := p.Persist([]byte("x"), "b.xlsx")
		require.Error(t, err)
		assert.Equal(t, export.MsgGrantInProgress, err.Error())

		close(release)
		require.NoError(t, <-done)
	})
}

func TestForPlatform(t *testing.T) {
	t.Run("DownloadOverride", func(t *testing.T) {
		p := export.ForPlatform(config.ExportConfig{Platform: "download", DownloadDir: t.TempDir()})
		assert.IsType(t, &export.DownloadPersister{}, p)
	})

	t.Run("ShareOverride", func(t *testing.T) {
		p := export.ForPlatform(config.ExportConfig{Platform: "share"})
		assert.IsType(t, &export.SharePersister{}, p)
	})

	t.Run("ScopedWithoutDirDeniesGrant", func(t *testing.T) {
		p := export.ForPlatform(config.ExportConfig{Platform: "scoped"})
		_, err := p.Persist([]byte("x"), "a.xlsx")
		require.Error(t, err)
		assert.Equal(t, export.MsgGrantDenied, err.Error())
	})

	t.Run("ScopedWithDirWrites", func(t *testing.T) {
		dir := t.TempDir()
		p := export.ForPlatform(config.ExportConfig{Platform: "scoped", ScopedDir: dir})
		location, err := p.Persist([]byte("x"), "a.xlsx")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "a.xlsx"), location)
	})
}
