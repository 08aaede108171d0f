package pathsource

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

// Source yields the ordered list of tracked executable paths
type Source interface {
	Paths(ctx context.Context) ([]string, error)
}

// ErrUnavailable marks a source that cannot provide paths at all, as opposed to one that failed mid-read.
// FallbackSource switches to its secondary only on this error.
var ErrUnavailable = stderrors.New("path source unavailable")

func unavailable(err *errors.DomainError) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// IsUnavailable reports whether err marks an unavailable source
func IsUnavailable(err error) bool {
	return stderrors.Is(err, ErrUnavailable)
}

// normalize drops blank entries, keeping order and duplicates
func normalize(entries []string, origin string, logger logging.Logger) []string {
	paths := make([]string, 0, len(entries))
	for i, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			logger.Warnf("Skipping blank path entry, source: %s, index: %d", origin, i)
			continue
		}
		paths = append(paths, trimmed)
	}
	return paths
}

// StaticSource serves paths fixed at construction, typically from the configuration file
type StaticSource struct {
	entries []string
	logger  logging.Logger
}

func NewStaticSource(entries []string, logger logging.Logger) *StaticSource {
	return &StaticSource{
		entries: append([]string(nil), entries...),
		logger:  logger,
	}
}

func (s *StaticSource) Paths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("path loading cancelled", err)
	}
	return normalize(s.entries, "static", s.logger), nil
}

// FallbackSource asks Primary first and Secondary only when Primary is unavailable.
// A non-empty Secondary answer is kept and served on later calls while Primary stays unavailable.
type FallbackSource struct {
	Primary   Source
	Secondary Source
	logger    logging.Logger

	mutex     sync.Mutex
	secondary []string
}

func NewFallbackSource(primary, secondary Source, logger logging.Logger) *FallbackSource {
	return &FallbackSource{
		Primary:   primary,
		Secondary: secondary,
		logger:    logger,
	}
}

func (s *FallbackSource) Paths(ctx context.Context) ([]string, error) {
	paths, err := s.Primary.Paths(ctx)
	if err == nil {
		return paths, nil
	}
	if !IsUnavailable(err) || s.Secondary == nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.secondary) > 0 {
		s.logger.Debugf("Primary path source unavailable, reusing fallback paths, count: %d", len(s.secondary))
		return append([]string(nil), s.secondary...), nil
	}

	s.logger.Infof("Primary path source unavailable, falling back, reason: %v", err)
	paths, err = s.Secondary.Paths(ctx)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		s.secondary = append([]string(nil), paths...)
	}
	return paths, nil
}
