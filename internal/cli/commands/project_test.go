package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stonelabs/webduino-generator/internal/cli/config"
	"github.com/stonelabs/webduino-generator/internal/generator"
)

// newProject runs init in a fresh folder and returns its path.
func newProject(t *testing.T, args ...string) string {
	t.Helper()
	target := filepath.Join(t.TempDir(), "server")
	usePrompter(t, &fakePrompter{})

	_, err := execute(t, append([]string{"init", target}, args...)...)
	require.NoError(t, err)
	return target
}

func TestInitCommandFlags(t *testing.T) {
	cmd := NewInitCommand()

	for _, name := range []string{"force", "yes", "mode", "ssid", "port"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "f", cmd.Flags().Lookup("force").Shorthand)
	assert.Equal(t, "y", cmd.Flags().Lookup("yes").Shorthand)
}

func TestInitCreatesProject(t *testing.T) {
	target := newProject(t, "-s", "home", "-p", "8080")

	assert.DirExists(t, filepath.Join(target, config.DirName))
	assert.FileExists(t, filepath.Join(target, config.FileName))
	assert.DirExists(t, filepath.Join(target, "output"))
	assert.FileExists(t, filepath.Join(target, "input", "index.html"))
	assert.FileExists(t, filepath.Join(target, "input", "toggleLed.cpp"))
	assert.FileExists(t, filepath.Join(target, "template", "main.ino"))
	assert.FileExists(t, filepath.Join(target, "template", "commands.h"))

	cfg, err := config.Load(target)
	require.NoError(t, err)
	assert.Equal(t, "home", cfg.Connection.SSID)
	assert.Equal(t, 8080, cfg.Connection.Port)
	assert.Equal(t, "wifinina", cfg.Connection.Mode)
}

func TestInitNonEmptyTarget(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "notes.txt"), []byte("keep"), 0644))

	t.Run("declined", func(t *testing.T) {
		p := &fakePrompter{confirm: false}
		usePrompter(t, p)

		_, err := execute(t, "init", target)
		assert.True(t, errors.Is(err, errAborted))
		assert.Equal(t, []string{"Continue anyway?"}, p.asked)
		assert.NoFileExists(t, filepath.Join(target, config.FileName))
	})

	t.Run("confirmed", func(t *testing.T) {
		usePrompter(t, &fakePrompter{confirm: true})

		out, err := execute(t, "init", target)
		require.NoError(t, err)
		assert.Contains(t, out, "is not empty")
		assert.FileExists(t, filepath.Join(target, config.FileName))
		assert.FileExists(t, filepath.Join(target, "notes.txt"))
	})

	t.Run("blocked", func(t *testing.T) {
		p := &fakePrompter{}
		usePrompter(t, p)

		_, err := execute(t, "init", target, "--yes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Config folder exists!")
		assert.Empty(t, p.asked)
	})

	t.Run("forced", func(t *testing.T) {
		usePrompter(t, &fakePrompter{})
		stale := filepath.Join(target, "input", "stale.html")
		require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

		_, err := execute(t, "init", target, "--yes", "--force")
		require.NoError(t, err)
		assert.NoFileExists(t, stale)
		assert.FileExists(t, filepath.Join(target, "notes.txt"))
	})
}

func TestInitRejectsBadSettings(t *testing.T) {
	target := filepath.Join(t.TempDir(), "server")

	_, err := execute(t, "init", target, "-m", "lora")
	assert.ErrorIs(t, err, generator.ErrInvalidConfig)

	_, err = execute(t, "init", target, "--port=-1")
	assert.ErrorIs(t, err, generator.ErrInvalidConfig)

	assert.NoDirExists(t, target)
}

func TestBuildProject(t *testing.T) {
	target := newProject(t, "-s", "home")
	t.Setenv("WGEN_PASS", "secret")

	p := &fakePrompter{}
	usePrompter(t, p)

	out, err := execute(t, "build", target, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 2 files from 4 inputs")
	assert.Empty(t, p.asked)

	main, err := os.ReadFile(filepath.Join(target, "output", generator.SketchDir, "main.ino"))
	require.NoError(t, err)
	assert.Contains(t, string(main), `pass[] = "secret";`)

	// The project owns its output, so a second build replaces it silently.
	_, err = execute(t, "build", target, "-q")
	require.NoError(t, err)
	assert.Empty(t, p.asked)
}

func TestBuildFromSubfolder(t *testing.T) {
	target := newProject(t, "-s", "home")
	t.Setenv("WGEN_PASS", "secret")

	_, err := execute(t, "build", filepath.Join(target, "input"), "-q")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "output", generator.SketchDir, "main.ino"))
}

func TestBuildOutsideProject(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "build", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNotProject)
	assert.Equal(t, dir, projectDirOf(err))
}

func TestBuildRecreatesMissingOutput(t *testing.T) {
	target := newProject(t, "-s", "home")
	t.Setenv("WGEN_PASS", "secret")
	require.NoError(t, os.RemoveAll(filepath.Join(target, "output")))

	out, err := execute(t, "build", target, "-q", "-v")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Input Files"), "verbose build dumps the template data")
	assert.FileExists(t, filepath.Join(target, "output", generator.SketchDir, "main.ino"))
}
