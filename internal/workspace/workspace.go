package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/deploy-repack/internal/logger"
)

const (
	// ExtractDirName is the extraction directory inside a workspace root.
	ExtractDirName = "tmpdir"

	// IntermediateName is the patched descriptor file inside a workspace root.
	IntermediateName = "deploy-config.tmp"

	tempPattern = "deploy-repack-*"
)

// Workspace is a prepared scratch area.
type Workspace struct {
	// Root is the workspace root directory.
	Root string

	// ExtractDir is where the source archive is unpacked.
	ExtractDir string

	// Intermediate is the path the patched descriptor is serialized to
	// before being copied into ExtractDir.
	Intermediate string

	ephemeral bool
	keep      bool
	log       *logger.Logger
}

// Manager creates workspaces.
type Manager struct {
	// TempDir is the parent of ephemeral workspaces. Empty means os.TempDir().
	TempDir string

	log *logger.Logger
}

// NewManager creates a Manager that places ephemeral workspaces under
// tempDir (os.TempDir() when empty).
func NewManager(tempDir string, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{TempDir: tempDir, log: log}
}

// Prepare returns a ready-to-use workspace.
//
// With root empty, a new temporary directory is created and Close removes
// it unless keep is set. With root set, the directory is created if
// needed, any leftover extraction directory and intermediate file inside it
// are removed, and Close leaves it alone.
func (m *Manager) Prepare(root string, keep bool) (*Workspace, error) {
	ephemeral := root == ""

	if ephemeral {
		dir, err := os.MkdirTemp(m.TempDir, tempPattern)
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary workspace: %w", err)
		}
		root = dir
	} else {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace path %s: %w", root, err)
		}
		root = abs
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create workspace %s: %w", root, err)
		}
	}

	ws := &Workspace{
		Root:         root,
		ExtractDir:   filepath.Join(root, ExtractDirName),
		Intermediate: filepath.Join(root, IntermediateName),
		ephemeral:    ephemeral,
		keep:         keep || !ephemeral,
		log:          m.log,
	}

	if err := ws.clear(); err != nil {
		return nil, err
	}
	m.log.Debug().Str("workspace", root).Bool("ephemeral", ephemeral).Msg("workspace prepared")
	return ws, nil
}

// clear removes leftovers from a previous run. Absence is not an error.
func (w *Workspace) clear() error {
	if err := os.RemoveAll(w.ExtractDir); err != nil {
		return fmt.Errorf("failed to remove old extraction directory %s: %w", w.ExtractDir, err)
	}
	if err := os.Remove(w.Intermediate); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old intermediate file %s: %w", w.Intermediate, err)
	}
	return nil
}

// Kept reports whether Close leaves the workspace on disk.
func (w *Workspace) Kept() bool {
	return w.keep
}

// Close removes an ephemeral workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	if w.keep {
		return nil
	}
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.Root, err)
	}
	w.log.Debug().Str("workspace", w.Root).Msg("workspace removed")
	return nil
}

// CopyFile copies src over dst, replacing its contents. An existing dst
// keeps its file mode; a new one gets the mode of src.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	mode := os.FileMode(0o644)
	if info, err := os.Stat(dst); err == nil {
		mode = info.Mode().Perm()
	} else if info, err := srcFile.Stat(); err == nil {
		mode = info.Mode().Perm()
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}
