package generator

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/resource"
)

var (
	// ErrInvalidPath reports a missing input, output or template directory.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidConfig reports an out of range or unsupported setting.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SketchDir is the folder created below the output root. Arduino requires
// the sketch folder to match the name of its main .ino file.
const SketchDir = "main"

// DefaultPort is the web server port used when none is configured.
const DefaultPort = 80

// DefaultMode is the connection library used when none is configured.
const DefaultMode = "wifinina"

// SupportedModes lists the connection modes the built-in templates handle.
var SupportedModes = []string{"wifinina"}

// Options configures one generation run.
type Options struct {
	InputDir string
	// TemplateDir selects a template tree on disk. Empty uses the built-in
	// templates.
	TemplateDir string
	// OutputDir is the output root; the sketch is written to OutputDir/main.
	OutputDir string

	Mode     string
	SSID     string
	Password string
	Port     int

	// Force replaces an existing sketch folder.
	Force bool

	// DynamicExtensions overrides the extensions treated as handler source.
	// Nil keeps the default (.cpp).
	DynamicExtensions []string
	// MimeTypes maps extensions to MIME types ahead of the system table.
	MimeTypes map[string]string
	Workers   int

	Cache  *resource.Cache
	OnFile func(rec *resource.FileRecord)
	Logger *zap.Logger
}

// Validate checks settings and paths before any file is touched.
func (o *Options) Validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 0-65535", ErrInvalidConfig, o.Port)
	}

	if !IsSupportedMode(o.Mode) {
		return &ModeError{Mode: o.Mode}
	}

	if err := checkDir("input", o.InputDir); err != nil {
		return err
	}
	if err := checkDir("output", o.OutputDir); err != nil {
		return err
	}
	if o.TemplateDir != "" {
		if err := checkDir("template", o.TemplateDir); err != nil {
			return err
		}
	}

	return nil
}

// IsSupportedMode reports whether mode, compared case-insensitively, is one
// of SupportedModes.
func IsSupportedMode(mode string) bool {
	for _, m := range SupportedModes {
		if strings.EqualFold(mode, m) {
			return true
		}
	}
	return false
}

// ModeError reports an unsupported connection mode.
type ModeError struct {
	Mode string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("connection mode %q not supported (supported modes: %s)", e.Mode, strings.Join(SupportedModes, ", "))
}

func (e *ModeError) Unwrap() error {
	return ErrInvalidConfig
}

func checkDir(kind, path string) error {
	if path == "" {
		return fmt.Errorf("%w: no %s directory given", ErrInvalidPath, kind)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s directory %s: %v", ErrInvalidPath, kind, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s path %s is not a directory", ErrInvalidPath, kind, path)
	}

	return nil
}
