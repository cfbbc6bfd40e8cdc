package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/generator"
	"github.com/stonelabs/webduino-generator/internal/resource"
)

// BuildResult holds the outcome of one rebuild
type BuildResult struct {
	Changed  []string
	Duration time.Duration
	Result   *generator.Result
	Err      error
}

// Rebuilder regenerates a sketch after changes, reusing classified records
// of input files that did not change.
type Rebuilder struct {
	opts   generator.Options
	cache  *resource.Cache
	logger *zap.Logger
}

// NewRebuilder prepares repeated builds with opts. Every rebuild replaces
// the previous sketch.
func NewRebuilder(opts generator.Options, cacheSize int) (*Rebuilder, error) {
	if opts.Cache == nil {
		cache, err := resource.NewCache(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create record cache: %w", err)
		}
		opts.Cache = cache
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Force = true

	return &Rebuilder{opts: opts, cache: opts.Cache, logger: opts.Logger}, nil
}

// Roots returns the directories whose contents affect the output.
func (r *Rebuilder) Roots() []string {
	roots := []string{r.opts.InputDir}
	if r.opts.TemplateDir != "" {
		roots = append(roots, r.opts.TemplateDir)
	}
	return roots
}

// Cache exposes the record cache shared across rebuilds.
func (r *Rebuilder) Cache() *resource.Cache {
	return r.cache
}

// FullBuild drops every cached record and builds from scratch.
func (r *Rebuilder) FullBuild(ctx context.Context) *BuildResult {
	r.cache.Purge()
	return r.Build(ctx, nil)
}

// Build invalidates the cached records of changed input files and
// regenerates the sketch. Template changes need no invalidation.
func (r *Rebuilder) Build(ctx context.Context, changed []string) *BuildResult {
	start := time.Now()

	for _, name := range r.inputNames(changed) {
		r.cache.Invalidate(name)
	}

	res, err := generator.Generate(ctx, r.opts)
	result := &BuildResult{
		Changed:  changed,
		Duration: time.Since(start),
		Result:   res,
		Err:      err,
	}

	if err != nil {
		r.logger.Warn("rebuild failed", zap.Error(err))
	} else {
		r.logger.Debug("rebuild finished",
			zap.Int("changed", len(changed)),
			zap.Int("cached", r.cache.Len()),
			zap.Duration("took", result.Duration))
	}

	return result
}

// inputNames maps changed paths below the input directory to the
// slash-separated names used as cache keys.
func (r *Rebuilder) inputNames(changed []string) []string {
	root, err := filepath.Abs(r.opts.InputDir)
	if err != nil {
		return nil
	}

	var names []string
	for _, path := range changed {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		names = append(names, filepath.ToSlash(rel))
	}
	return names
}
