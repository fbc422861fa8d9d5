package manifest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrSourceNotDirectory is returned when the configured source is not a directory.
var ErrSourceNotDirectory = errors.New("source is not a directory")

// Entry describes one file of the source tree.
type Entry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Digest  string    `json:"digest"`
}

// Manifest is the derived state written by a Builder.
type Manifest struct {
	Root        string    `json:"root"`
	GeneratedAt time.Time `json:"generated_at"`
	TotalFiles  int       `json:"total_files"`
	TotalBytes  int64     `json:"total_bytes"`
	Entries     []Entry   `json:"entries"`
}

// Builder recomputes the manifest of a source directory.
type Builder struct {
	sourceDir  string
	outputPath string
	now        func() time.Time
	logger     *slog.Logger
}

// NewBuilder creates a Builder for sourceDir writing to outputPath.
func NewBuilder(sourceDir, outputPath string, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	out, err := filepath.Abs(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}

	return &Builder{
		sourceDir:  src,
		outputPath: out,
		now:        time.Now,
		logger:     logger.With("component", "manifest_builder"),
	}, nil
}

// SourceDir returns the absolute source directory.
func (b *Builder) SourceDir() string {
	return b.sourceDir
}

// OutputPath returns the absolute manifest path.
func (b *Builder) OutputPath() string {
	return b.outputPath
}

// Scan walks the source directory and returns its manifest without writing it.
// Hidden entries and the manifest itself are skipped.
func (b *Builder) Scan(ctx context.Context) (*Manifest, error) {
	info, err := os.Stat(b.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotDirectory, b.sourceDir)
	}

	m := &Manifest{Root: b.sourceDir, Entries: []Entry{}}

	err = filepath.WalkDir(b.sourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Files can vanish between listing and visiting.
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == b.sourceDir {
			return nil
		}
		if IsHidden(d.Name()) || b.isOutput(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		entry, err := b.hashFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		m.Entries = append(m.Entries, entry)
		m.TotalBytes += entry.Size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", b.sourceDir, err)
	}

	sort.Slice(m.Entries, func(i, j int) bool {
		return m.Entries[i].Path < m.Entries[j].Path
	})
	m.TotalFiles = len(m.Entries)
	m.GeneratedAt = b.now().UTC()

	return m, nil
}

// Build scans the source directory and atomically replaces the manifest file.
func (b *Builder) Build(ctx context.Context) error {
	start := time.Now()

	m, err := b.Scan(ctx)
	if err != nil {
		return err
	}

	if err := b.write(m); err != nil {
		return err
	}

	b.logger.Info("manifest written",
		"path", b.outputPath,
		"files", m.TotalFiles,
		"bytes", m.TotalBytes,
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// Read loads a manifest previously written to path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// IsHidden reports whether a file or directory name is hidden.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Ignores reports whether a change to path cannot affect the manifest:
// hidden entries and the manifest file (or its temporaries) are ignored.
func (b *Builder) Ignores(path string) bool {
	return IsHidden(filepath.Base(path)) || b.isOutput(path)
}

func (b *Builder) isOutput(path string) bool {
	return path == b.outputPath || strings.HasPrefix(filepath.Base(path), filepath.Base(b.outputPath)+".tmp")
}

func (b *Builder) hashFile(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return Entry{}, err
	}
	if _, err := io.Copy(h, f); err != nil {
		return Entry{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	rel, err := filepath.Rel(b.sourceDir, path)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Path:    filepath.ToSlash(rel),
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
		Digest:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func (b *Builder) write(m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	dir := filepath.Dir(b.outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.outputPath)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary manifest: %w", err)
	}
	if err := os.Rename(tmpName, b.outputPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
