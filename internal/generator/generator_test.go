package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stonelabs/webduino-generator/internal/assets"
	"github.com/stonelabs/webduino-generator/internal/render"
	"github.com/stonelabs/webduino-generator/internal/resource"
)

func newOptions(t *testing.T) Options {
	t.Helper()

	input := filepath.Join(t.TempDir(), "input")
	require.NoError(t, assets.CopyTo(assets.Demo(), input))

	return Options{
		InputDir:  input,
		OutputDir: t.TempDir(),
		Mode:      "WiFiNINA",
		SSID:      "lab",
		Password:  "hunter2",
		Port:      8080,
	}
}

func TestValidate(t *testing.T) {
	base := newOptions(t)

	tests := []struct {
		name    string
		modify  func(o *Options)
		wantErr error
	}{
		{name: "valid", modify: func(o *Options) {}},
		{name: "negative port", modify: func(o *Options) { o.Port = -1 }, wantErr: ErrInvalidConfig},
		{name: "port too large", modify: func(o *Options) { o.Port = 65536 }, wantErr: ErrInvalidConfig},
		{name: "unsupported mode", modify: func(o *Options) { o.Mode = "ethernet" }, wantErr: ErrInvalidConfig},
		{name: "missing input", modify: func(o *Options) { o.InputDir = filepath.Join(o.OutputDir, "nope") }, wantErr: ErrInvalidPath},
		{name: "empty input", modify: func(o *Options) { o.InputDir = "" }, wantErr: ErrInvalidPath},
		{name: "missing output", modify: func(o *Options) { o.OutputDir = filepath.Join(o.InputDir, "nope") }, wantErr: ErrInvalidPath},
		{name: "template is a file", modify: func(o *Options) { o.TemplateDir = filepath.Join(o.InputDir, "index.html") }, wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.modify(&opts)

			err := opts.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestModeError(t *testing.T) {
	opts := newOptions(t)
	opts.Mode = "wifinia"

	err := opts.Validate()
	var modeErr *ModeError
	require.True(t, errors.As(err, &modeErr))
	assert.Equal(t, "wifinia", modeErr.Mode)
	assert.Contains(t, err.Error(), "wifinina")
}

func TestGenerate(t *testing.T) {
	opts := newOptions(t)

	res, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(opts.OutputDir, SketchDir), res.SketchDir)
	assert.ElementsMatch(t, []string{"commands.h", "main.ino"}, res.Outputs)
	assert.Equal(t, 4, res.Table.Len())
	assert.Equal(t, resource.Hash("index.html"), res.Table.Default)
	assert.Equal(t, "wifinina", res.Metadata[resource.MetaMode])
	assert.Equal(t, "8080", res.Metadata[resource.MetaPort])

	main, err := os.ReadFile(filepath.Join(res.SketchDir, "main.ino"))
	require.NoError(t, err)
	assert.Contains(t, string(main), `static const char pass[] = "hunter2";`)
	assert.Contains(t, string(main), `WebServer webserver("", 8080);`)
}

func TestGenerateRefusesExistingSketch(t *testing.T) {
	opts := newOptions(t)

	_, err := Generate(context.Background(), opts)
	require.NoError(t, err)

	_, err = Generate(context.Background(), opts)
	require.ErrorIs(t, err, render.ErrOutputExists)

	opts.Force = true
	_, err = Generate(context.Background(), opts)
	require.NoError(t, err)
}

func TestGenerateCustomTemplates(t *testing.T) {
	opts := newOptions(t)
	opts.TemplateDir = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(opts.TemplateDir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(opts.TemplateDir, "src", "routes.txt"),
		[]byte("{{range $n, $f := .FileData}}{{$n}} {{$f.FileType}}\n{{end}}"), 0644))

	res, err := Generate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/routes.txt"}, res.Outputs)

	data, err := os.ReadFile(filepath.Join(res.SketchDir, "src", "routes.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{
		"index.html static-text",
		"index.js static-text",
		"jsonStatus.cpp dynamic",
		"toggleLed.cpp dynamic",
	}, lines)
}

func TestGenerateDynamicExtensions(t *testing.T) {
	opts := newOptions(t)
	opts.DynamicExtensions = []string{".js"}

	res, err := Prepare(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, resource.Dynamic, res.Table.Files["index.js"].Kind)
	assert.Equal(t, resource.StaticText, res.Table.Files["toggleLed.cpp"].Kind)
}

func TestGenerateInvalidOptionsHasNoSideEffects(t *testing.T) {
	opts := newOptions(t)
	opts.Port = 70000

	_, err := Generate(context.Background(), opts)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, statErr := os.Stat(filepath.Join(opts.OutputDir, SketchDir))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPrepareIsDeterministic(t *testing.T) {
	opts := newOptions(t)
	opts.Workers = 4

	first, err := Prepare(context.Background(), opts)
	require.NoError(t, err)
	second, err := Prepare(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Table.Files, second.Table.Files)
	assert.Equal(t, first.Table.Mimes, second.Table.Mimes)
	assert.Equal(t, first.Context, second.Context)
}
