package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/0muji4/symindex/internal/symbol"
)

// LoadIndex reads every file matching patterns, loads each as a search
// payload and merges them in pattern order. A file matched by more than one
// pattern is read once.
func LoadIndex(ctx context.Context, r FileReader, patterns []string, logger *zap.Logger, strict bool) (*symbol.Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var files []string
	for _, p := range patterns {
		matches, err := r.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("workspace: expand %q: %w", p, err)
		}
		for _, m := range matches {
			if !slices.Contains(files, m) {
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("workspace: no payload files match %v", patterns)
	}

	parts := make([]*symbol.Index, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := r.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("workspace: read %s: %w", f, err)
		}
		idx, err := symbol.Load(data,
			symbol.WithSource(f),
			symbol.WithStrict(strict),
			symbol.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		logger.Debug("loaded payload", zap.String("file", f), zap.Int("entries", idx.Len()))
		parts = append(parts, idx)
	}

	merged, err := symbol.Merge(parts, symbol.WithStrict(strict), symbol.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	logger.Info("symbol index ready",
		zap.Int("files", len(files)),
		zap.Int("entries", merged.Len()),
		zap.Int("skipped", len(merged.Warnings())),
	)
	return merged, nil
}

// IsMalformed reports whether err came from a rejected payload record.
func IsMalformed(err error) bool {
	return errors.Is(err, symbol.ErrMalformedData)
}
