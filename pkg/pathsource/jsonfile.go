package pathsource

import (
	"context"
	"encoding/json"
	"os"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

const DefaultPathsFile = "check_path.json"

type pathEntry struct {
	Path string `json:"path"`
}

// JSONFileSource reads a JSON array of {"path": "..."} objects
type JSONFileSource struct {
	file   string
	logger logging.Logger
}

func NewJSONFileSource(file string, logger logging.Logger) *JSONFileSource {
	if file == "" {
		file = DefaultPathsFile
	}
	return &JSONFileSource{
		file:   file,
		logger: logger,
	}
}

func (s *JSONFileSource) Paths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("path loading cancelled", err)
	}

	data, err := os.ReadFile(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, unavailable(errors.NewNotFoundError("paths file not found", err).WithContext("file", s.file))
		}
		return nil, unavailable(errors.NewIOError("failed to read paths file", err).WithContext("file", s.file))
	}

	var entries []pathEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, unavailable(errors.NewConfigurationError("failed to parse paths file", err).WithContext("file", s.file))
	}

	raw := make([]string, 0, len(entries))
	for _, entry := range entries {
		raw = append(raw, entry.Path)
	}
	paths := normalize(raw, s.file, s.logger)
	s.logger.Debugf("Loaded paths file, file: %s, paths: %d", s.file, len(paths))
	return paths, nil
}
