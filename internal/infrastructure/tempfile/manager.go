// Package tempfile manages the scratch directory that frontends upload
// documents into before printing them.
package tempfile

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/printbridge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// partialSuffix marks files that are still being written
const partialSuffix = ".part"

// OwnerMarker is the file that claims a scratch directory for the manager.
// Sweep only deletes inside a claimed directory.
const OwnerMarker = ".printbridge-scratch"

// Config contains configuration for the scratch directory
type Config struct {
	// Dir is the scratch directory
	// Default: <os temp dir>/printbridge
	Dir string
	// Logger for operations
	Logger *zap.Logger
}

// Manager writes decoded uploads into the scratch directory and removes them
type Manager struct {
	dir    string
	owned  bool
	logger *zap.Logger
}

// NewManager creates a Manager, creating the scratch directory when missing
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		config = &Config{}
	}
	dir := config.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "printbridge")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, printing.NewIOError(err, "cannot resolve scratch directory %s", dir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, printing.NewIOError(err, "cannot create scratch directory %s", abs)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{dir: abs, logger: logger.Named("tempfile")}
	if m.owned, err = claim(abs); err != nil {
		return nil, err
	}
	if !m.owned {
		m.logger.Warn("scratch directory holds foreign files, sweeping disabled",
			zap.String("dir", abs),
			zap.String("marker", OwnerMarker))
	}
	return m, nil
}

// claim marks dir as owned when it is empty. A directory that already
// carries the marker stays owned; any other directory is left alone.
func claim(dir string) (bool, error) {
	marker := filepath.Join(dir, OwnerMarker)
	if _, err := os.Stat(marker); err == nil {
		return true, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, printing.NewIOError(err, "cannot read scratch directory %s", dir)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return false, printing.NewIOError(err, "cannot claim scratch directory %s", dir)
	}
	return true, nil
}

// Dir returns the absolute scratch directory
func (m *Manager) Dir() string {
	return m.dir
}

// Create decodes payload and writes it to <dir>/<filename>, replacing an
// existing file of the same name. Nothing is written when decoding fails.
func (m *Manager) Create(ctx context.Context, payload, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	data, err := DecodePayload(payload)
	if err != nil {
		return "", err
	}

	target := filepath.Join(m.dir, filename)
	if err := m.write(target, data); err != nil {
		return "", err
	}

	m.logger.Info("temp file created",
		zap.String("path", target),
		zap.Int("size", len(data)))
	return target, nil
}

// Store writes already-decoded data to <dir>/<filename>. Rendered documents
// take this path.
func (m *Manager) Store(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	target := filepath.Join(m.dir, filename)
	if err := m.write(target, data); err != nil {
		return "", err
	}
	m.logger.Debug("temp file stored", zap.String("path", target), zap.Int("size", len(data)))
	return target, nil
}

// write stores data through a temporary sibling so that target never holds a
// partial document
func (m *Manager) write(target string, data []byte) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return printing.NewIOError(err, "cannot create scratch directory %s", m.dir)
	}

	partial := filepath.Join(m.dir, "."+uuid.NewString()+partialSuffix)
	f, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return printing.NewIOError(err, "cannot create %s", target)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(partial)
		return printing.NewIOError(err, "cannot write %s", target)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(partial)
		return printing.NewIOError(err, "cannot write %s", target)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return printing.NewIOError(err, "cannot move upload into %s", target)
	}
	return nil
}

// Remove deletes <dir>/<filename>. A missing file is NOT_FOUND.
func (m *Manager) Remove(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateFilename(filename); err != nil {
		return err
	}
	return m.RemovePath(ctx, filepath.Join(m.dir, filename))
}

// RemovePath deletes a file by absolute path. It backs remove_after_print,
// where the document may live outside the scratch directory.
func (m *Manager) RemovePath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return shared.WrapDomainError(shared.ErrNotFound.Code, fmt.Sprintf("file %s not found", path), err)
		}
		return printing.NewIOError(err, "cannot stat %s", path)
	}
	if info.IsDir() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("%s is a directory", path))
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return printing.NewPermissionError(err, "not allowed to remove %s", path)
		}
		return printing.NewIOError(err, "cannot remove %s", path)
	}

	m.logger.Info("temp file removed", zap.String("path", path))
	return nil
}

// Owned reports whether the scratch directory carries the owner marker
func (m *Manager) Owned() bool {
	return m.owned
}

// Sweep removes scratch files last modified before now-olderThan, including
// partial writes left behind by a crash. It does nothing in a directory the
// manager does not own.
func (m *Manager) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	if !m.owned {
		return 0, nil
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, printing.NewIOError(err, "cannot read scratch directory %s", m.dir)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.Type().IsRegular() || entry.Name() == OwnerMarker {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			m.logger.Warn("cannot remove stale temp file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
		m.logger.Debug("removed stale temp file", zap.String("path", path))
	}

	if removed > 0 {
		m.logger.Info("temp file sweep completed",
			zap.Int("removed", removed),
			zap.Duration("older_than", olderThan))
	}
	return removed, nil
}

// ValidateFilename accepts a single path component: not empty, no separators,
// no parent references and no NUL bytes
func ValidateFilename(filename string) error {
	switch {
	case strings.TrimSpace(filename) == "":
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "filename is required")
	case filename == "." || filename == "..",
		strings.ContainsAny(filename, `/\`),
		strings.ContainsRune(filename, 0),
		strings.Contains(filename, ".."):
		return shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("filename %q must be a plain file name", filename))
	case filename == OwnerMarker,
		strings.HasSuffix(filename, partialSuffix) && strings.HasPrefix(filename, "."):
		return shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("filename %q is reserved", filename))
	}
	return nil
}

// DecodePayload decodes standard base64, with or without padding. A
// "data:<mime>;base64," prefix and embedded line breaks are ignored.
func DecodePayload(payload string) ([]byte, error) {
	s := strings.TrimSpace(payload)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ";base64,"); i >= 0 {
			s = s[i+len(";base64,"):]
		}
	}
	s = strings.NewReplacer("\r", "", "\n", "", " ", "").Replace(s)

	enc := base64.StdEncoding
	if !strings.HasSuffix(s, "=") && len(s)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(s)
	if err != nil {
		return nil, shared.WrapDomainError(printing.ErrCodeDecode, "payload is not valid base64", err)
	}
	return data, nil
}
