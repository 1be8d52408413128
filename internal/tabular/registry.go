package tabular

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrWorkbookNotFound reports that a referenced workbook file exists in
// neither the data directory nor the working directory.
var ErrWorkbookNotFound = errors.New("workbook not found")

// ErrNoDefaultWorkbook reports that a directive without a workbook prefix ran
// against a registry with no default configured.
var ErrNoDefaultWorkbook = errors.New("no default workbook configured")

// Registry caches open workbooks by filename so repeated directives against
// the same file share one handle. A registry is owned by one parse session;
// the mutex covers concurrent directives inside that session.
type Registry struct {
	mu          sync.Mutex
	dataDir     string
	defaultName string
	logger      *zap.Logger
	sources     map[string]Source
}

// NewRegistry creates a registry that resolves filenames against dataDir
// first, then the working directory.
func NewRegistry(dataDir string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		dataDir: dataDir,
		logger:  logger,
		sources: make(map[string]Source),
	}
}

// Add registers an already open source under name.
func (r *Registry) Add(name string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = src
}

// SetDefault marks name as the workbook used by directives that carry no
// workbook prefix. The workbook opens lazily on first use.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// Default returns the source for the default workbook.
func (r *Registry) Default() (Source, error) {
	r.mu.Lock()
	name := r.defaultName
	r.mu.Unlock()

	if name == "" {
		return nil, ErrNoDefaultWorkbook
	}
	return r.Open(name)
}

// Open returns the cached source for name, opening the workbook on first use.
func (r *Registry) Open(name string) (Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if src, ok := r.sources[name]; ok {
		return src, nil
	}

	path := name
	if r.dataDir != "" {
		if candidate := filepath.Join(r.dataDir, name); fileExists(candidate) {
			path = candidate
		}
	}
	if !fileExists(path) {
		return nil, fmt.Errorf("%s: %w", name, ErrWorkbookNotFound)
	}

	src, err := OpenExcel(path, r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Info("opened workbook", zap.String("file", name), zap.String("path", path))
	r.sources[name] = src
	return src, nil
}

// Close closes every cached source that supports closing.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, src := range r.sources {
		if closer, ok := src.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("closing %s: %w", name, err)
			}
		}
		delete(r.sources, name)
	}
	return firstErr
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
