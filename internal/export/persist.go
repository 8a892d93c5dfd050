package export

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/crra-tempo/tempo-client/pkg/config"
)

// Localized persistence messages.
const (
	MsgGrantInProgress  = "Une demande de permission est déjà en cours. Veuillez la compléter."
	MsgGrantDenied      = "Impossible de sauvegarder le fichier. Veuillez accorder les permissions."
	MsgShareUnavailable = "Le partage de fichiers n'est pas disponible sur cette plateforme."
	MsgSaveFailed       = "Erreur lors de la sauvegarde ou du partage"
)

// Persister writes a finished export somewhere the user can reach it.
// Implementations report failures as errors; they never panic.
type Persister interface {
	Persist(data []byte, filename string) (string, error)
}

// ForPlatform selects the persistence strategy at startup. The config can
// force one; otherwise the host OS decides: macOS gets the share handoff,
// everything else the plain download directory. The scoped strategy is
// opt-in only.
func ForPlatform(cfg config.ExportConfig) Persister {
	platform := cfg.Platform
	if platform == "" {
		if runtime.GOOS == "darwin" {
			platform = "share"
		} else {
			platform = "download"
		}
	}

	switch platform {
	case "share":
		return NewSharePersister(cfg.DownloadDir, nil)
	case "scoped":
		return NewScopedPersister(func() (string, error) {
			if cfg.ScopedDir == "" {
				return "", errors.New(MsgGrantDenied)
			}
			return cfg.ScopedDir, nil
		})
	default:
		return NewDownloadPersister(cfg.DownloadDir)
	}
}

// DownloadPersister drops the file into the user's download directory,
// the closest analogue of a browser download.
type DownloadPersister struct {
	dir string
}

func NewDownloadPersister(dir string) *DownloadPersister {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, "Downloads")
		} else {
			dir = "."
		}
	}
	return &DownloadPersister{dir: dir}
}

func (p *DownloadPersister) Persist(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}
	target := filepath.Join(p.dir, filename)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}
	return target, nil
}

// SharePersister writes to a private directory first and then hands the
// file to the OS share/open facility, like the mobile share sheet.
type SharePersister struct {
	dir   string
	share func(path string) error
}

func NewSharePersister(dir string, share func(path string) error) *SharePersister {
	if share == nil {
		share = systemOpen
	}
	return &SharePersister{dir: dir, share: share}
}

func (p *SharePersister) Persist(data []byte, filename string) (string, error) {
	dir := p.dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "tempo-exports")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}
	target := filepath.Join(dir, filename)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}
	if err := p.share(target); err != nil {
		return "", errors.New(MsgShareUnavailable)
	}
	return target, nil
}

func systemOpen(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Start()
	case "linux":
		return exec.Command("xdg-open", path).Start()
	default:
		return errors.New(MsgShareUnavailable)
	}
}

// ScopedPersister writes through a directory the user grants once. The
// grant negotiation is single-flight: the OS rejects a duplicate
// concurrent request, so a latch refuses the second caller outright.
type ScopedPersister struct {
	grant     func() (string, error)
	requested atomic.Bool
	dir       atomic.Pointer[string]
}

func NewScopedPersister(grant func() (string, error)) *ScopedPersister {
	return &ScopedPersister{grant: grant}
}

func (p *ScopedPersister) Persist(data []byte, filename string) (string, error) {
	dir, err := p.grantedDir()
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, filename)
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("%s: %w", MsgSaveFailed, err)
	}
	return target, nil
}

func (p *ScopedPersister) grantedDir() (string, error) {
	if dir := p.dir.Load(); dir != nil {
		return *dir, nil
	}
	if !p.requested.CompareAndSwap(false, true) {
		return "", errors.New(MsgGrantInProgress)
	}
	defer p.requested.Store(false)

	dir, err := p.grant()
	if err != nil {
		return "", errors.New(MsgGrantDenied)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.New(MsgGrantDenied)
	}
	p.dir.Store(&dir)
	return dir, nil
}
