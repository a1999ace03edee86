package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shinji-kodama/deploy-repack/internal/logger"
)

var (
	// ErrUnsafePath is returned for archive entries that would be written
	// outside the extraction directory (absolute paths or "..").
	ErrUnsafePath = errors.New("archive entry escapes extraction directory")

	// ErrMemberNotFound is returned when an expected member is absent from
	// an extracted archive.
	ErrMemberNotFound = errors.New("archive member not found")
)

const (
	manifestDir  = "META-INF/"
	manifestFile = "META-INF/MANIFEST.MF"
)

// Extract unpacks the zip archive at archivePath into destDir and returns
// the number of files written. File modes and modification times are
// restored from the archive headers.
func Extract(ctx context.Context, archivePath, destDir string, log *logger.Logger) (int, error) {
	r, err := zip.OpenReader(archivePath)
	// ErrInsecurePath comes with a usable reader; entryTarget rejects the
	// offending entry with a more specific error.
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && r != nil) {
		return 0, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer func() { _ = r.Close() }()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	files := 0
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		target, err := entryTarget(destDir, f.Name)
		if err != nil {
			return files, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return files, err
		}
		log.Debug().Str("entry", f.Name).Uint64("size", f.UncompressedSize64).Msg("extracted")
		files++
	}

	return files, nil
}

// entryTarget maps a zip entry name to a path inside destDir.
func entryTarget(destDir, name string) (string, error) {
	if name == "" || path.IsAbs(name) || filepath.IsAbs(name) || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

// extractFile writes a single zip member to target.
func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer func() { _ = src.Close() }()

	// Owner read/write is always granted: the descriptor is overwritten in
	// place later, even when the archive marks it read-only.
	mode := f.Mode().Perm() | 0o600
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}

	if !f.Modified.IsZero() {
		_ = os.Chtimes(target, f.Modified, f.Modified)
	}
	return nil
}

// Member returns the on-disk path of the regular file name (slash-separated,
// relative to the archive root) inside an extracted tree.
func Member(extractDir, name string) (string, error) {
	target, err := entryTarget(extractDir, name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrMemberNotFound, name)
		}
		return "", fmt.Errorf("failed to stat %s: %w", target, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrMemberNotFound, name)
	}
	return target, nil
}

// packEntry is one file or directory to be written by Pack.
type packEntry struct {
	name string // slash-separated, directories end in "/"
	path string
	info fs.FileInfo
}

// Pack writes a zip archive at destPath containing the contents of srcDir.
// Entry names are relative to srcDir. It returns the number of files
// written. On failure the partial archive is removed.
func Pack(ctx context.Context, srcDir, destPath string, log *logger.Logger) (n int, err error) {
	entries, err := collect(srcDir)
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive %s: %w", destPath, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(destPath)
		}
	}()

	zw := zip.NewWriter(out)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := writeEntry(zw, e); err != nil {
			return n, err
		}
		if !e.info.IsDir() {
			log.Debug().Str("entry", e.name).Msg("packed")
			n++
		}
	}

	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("failed to finish archive %s: %w", destPath, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("failed to close archive %s: %w", destPath, err)
	}
	return n, nil
}

// collect walks srcDir and returns the entries to pack. filepath.WalkDir
// visits entries in lexical order; the manifest directory and file are then
// moved to the front.
func collect(srcDir string) ([]packEntry, error) {
	var entries []packEntry

	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking %s: %w", p, err)
		}
		if p == srcDir {
			return nil
		}
		// Symbolic links are skipped; an extracted archive never contains them.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", p, err)
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}

		name := filepath.ToSlash(rel)
		if d.IsDir() {
			name += "/"
		}
		entries = append(entries, packEntry{name: name, path: p, info: info})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entryRank(entries[i].name) < entryRank(entries[j].name)
	})
	return entries, nil
}

func entryRank(name string) int {
	switch name {
	case manifestDir:
		return 0
	case manifestFile:
		return 1
	default:
		return 2
	}
}

func writeEntry(zw *zip.Writer, e packEntry) error {
	hdr, err := zip.FileInfoHeader(e.info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", e.name, err)
	}
	hdr.Name = e.name

	if e.info.IsDir() {
		hdr.Method = zip.Store
		if _, err := zw.CreateHeader(hdr); err != nil {
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		return nil
	}

	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", e.name, err)
	}

	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.name, err)
	}
	return nil
}
