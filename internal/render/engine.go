package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/resource"
)

// ErrOutputExists is returned when the output directory is already present
// and overwriting was not requested.
var ErrOutputExists = errors.New("output directory already exists")

// Engine renders template trees against a Context.
type Engine struct {
	funcs  template.FuncMap
	logger *zap.Logger
}

// NewEngine creates a new template engine. A nil logger discards output.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		funcs: template.FuncMap{
			"upper":  strings.ToUpper,
			"lower":  strings.ToLower,
			"escape": resource.EscapeString,
			"join":   strings.Join,
			"indent": func(prefix, s string) string {
				return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
			},
		},
		logger: logger,
	}
}

// RenderFile executes one template text. Map lookups of missing keys are
// errors so that misspelled placeholders fail the build.
func (e *Engine) RenderFile(name, text string, data *Context) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}

	return buf.Bytes(), nil
}

// Render executes every file of the templates tree and writes the results
// to the same relative paths below outDir. Nothing is written to outDir
// unless every template rendered; an existing outDir is replaced only when
// force is set. It returns the rendered relative paths.
func (e *Engine) Render(ctx context.Context, templates fs.FS, data *Context, outDir string, force bool) ([]string, error) {
	if !force {
		if _, err := os.Stat(outDir); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, outDir)
		}
	}

	names, err := resource.Walk(templates)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	files := make(map[string][]byte, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := fs.ReadFile(templates, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		out, err := e.RenderFile(name, string(text), data)
		if err != nil {
			return nil, err
		}

		files[name] = out
		e.logger.Debug("rendered template", zap.String("template", name), zap.Int("bytes", len(out)))
	}

	if err := writeOutput(outDir, files, force); err != nil {
		return nil, err
	}

	return names, nil
}

// writeOutput writes files into a temporary sibling of outDir and renames it
// into place once every file is on disk.
func writeOutput(outDir string, files map[string][]byte, force bool) error {
	outDir = filepath.Clean(outDir)
	parent := filepath.Dir(outDir)

	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create output root: %w", err)
	}

	tmpDir, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.Chmod(tmpDir, 0755); err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("failed to prepare temp directory: %w", err)
	}

	for name, content := range files {
		fullPath, err := safeJoin(tmpDir, name)
		if err != nil {
			os.RemoveAll(tmpDir)
			return err
		}

		// Create subdirectories
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			os.RemoveAll(tmpDir)
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}

		if err := os.WriteFile(fullPath, content, 0644); err != nil {
			os.RemoveAll(tmpDir)
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if _, err := os.Stat(outDir); err == nil {
		if !force {
			os.RemoveAll(tmpDir)
			return fmt.Errorf("%w: %s", ErrOutputExists, outDir)
		}
		if err := os.RemoveAll(outDir); err != nil {
			os.RemoveAll(tmpDir)
			return fmt.Errorf("failed to remove old output directory: %w", err)
		}
	}

	if err := os.Rename(tmpDir, outDir); err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("failed to move temp directory to final location: %w", err)
	}

	return nil
}

// safeJoin resolves name below root and rejects paths escaping it.
func safeJoin(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid output path: %s attempts to write outside output directory", name)
	}
	return filepath.Join(root, clean), nil
}
