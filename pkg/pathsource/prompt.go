package pathsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
)

const Prompt = "Enter the path to the file: "

// PromptSource asks an operator for paths, one per line, until an empty line or EOF
type PromptSource struct {
	in     io.Reader
	out    io.Writer
	logger logging.Logger
}

func NewPromptSource(in io.Reader, out io.Writer, logger logging.Logger) *PromptSource {
	return &PromptSource{
		in:     in,
		out:    out,
		logger: logger,
	}
}

func (s *PromptSource) Paths(ctx context.Context) ([]string, error) {
	scanner := bufio.NewScanner(s.in)
	paths := make([]string, 0)

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelledError("path prompt cancelled", err)
		}
		if _, err := fmt.Fprint(s.out, Prompt); err != nil {
			return nil, errors.NewIOError("failed to write prompt", err)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, errors.NewIOError("failed to read path", err)
			}
			break
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}
		if strings.TrimSpace(line) == "" {
			s.logger.Warnf("Skipping blank path entry, source: prompt, index: %d", len(paths))
			continue
		}
		paths = append(paths, strings.TrimSpace(line))
	}

	s.logger.Debugf("Read paths from prompt, paths: %d", len(paths))
	return paths, nil
}
