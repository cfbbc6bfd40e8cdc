package generator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/assets"
	"github.com/stonelabs/webduino-generator/internal/render"
	"github.com/stonelabs/webduino-generator/internal/resource"
)

// Result describes a completed run.
type Result struct {
	Inputs    []string
	Table     *resource.Table
	Metadata  resource.Metadata
	Context   *render.Context
	SketchDir string
	Outputs   []string
}

// Prepare walks and classifies the input directory and packs the metadata,
// without rendering anything.
func Prepare(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	inputs, err := resource.WalkDir(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input files: %w", err)
	}
	logger.Debug("input files found", zap.String("dir", opts.InputDir), zap.Int("count", len(inputs)))

	var kinds resource.KindTable
	if opts.DynamicExtensions != nil {
		kinds = resource.NewKindTable(opts.DynamicExtensions)
	}

	builder := resource.NewBuilder(resource.NewClassifier(kinds, opts.MimeTypes), resource.BuilderOptions{
		Workers: opts.Workers,
		Cache:   opts.Cache,
		OnFile:  opts.OnFile,
		Logger:  logger,
	})

	table, err := builder.Build(ctx, os.DirFS(opts.InputDir), inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to process input files: %w", err)
	}

	meta := resource.NewMetadata(strings.ToLower(opts.Mode), opts.SSID, opts.Password, opts.Port)

	return &Result{
		Inputs:    inputs,
		Table:     table,
		Metadata:  meta,
		Context:   render.NewContext(table, meta),
		SketchDir: filepath.Join(opts.OutputDir, SketchDir),
	}, nil
}

// Generate runs the whole pipeline: walk, classify, build the tables and
// render every template into OutputDir/main.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	res, err := Prepare(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	outputs, err := render.NewEngine(logger).Render(ctx, TemplateFS(opts), res.Context, res.SketchDir, opts.Force)
	if err != nil {
		return nil, err
	}
	res.Outputs = outputs

	logger.Info("sketch generated",
		zap.String("dir", res.SketchDir),
		zap.Int("files", res.Table.Len()),
		zap.Int("templates", len(outputs)))

	return res, nil
}

// TemplateFS returns the template tree opts selects.
func TemplateFS(opts Options) fs.FS {
	if opts.TemplateDir != "" {
		return os.DirFS(opts.TemplateDir)
	}
	return assets.Templates()
}
