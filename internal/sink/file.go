package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/feral-file/marketplace-mirror/internal/adapter"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/metrics"
)

const fileSinkLabel = "file"

type fileSink struct {
	mu   sync.Mutex
	path string
	file adapter.File
}

// NewFileSink opens path for appending, creating it and its parent directories when missing
func NewFileSink(fs adapter.FileSystem, path string) (Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("file sink requires a path")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("failed to create sink directory %s: %w", dir, err)
		}
	}

	file, err := fs.OpenAppend(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink file %s: %w", path, err)
	}

	return &fileSink{path: path, file: file}, nil
}

// AppendLine writes line to the file and mirrors it to the logger at debug level
func (s *fileSink) AppendLine(ctx context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("file sink %s is closed", s.path)
	}

	if _, err := s.file.Write([]byte(terminate(line))); err != nil {
		metrics.SinkErrors.WithLabelValues(fileSinkLabel).Inc()
		return fmt.Errorf("failed to append to %s: %w", s.path, err)
	}
	metrics.SinkLinesWritten.WithLabelValues(fileSinkLabel).Inc()

	logger.DebugCtx(ctx, strings.TrimSpace(line), zap.String("sink", s.path))
	return nil
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file = nil
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, closeErr)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync %s: %w", s.path, syncErr)
	}
	return nil
}
