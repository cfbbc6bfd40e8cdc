package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/assets"
	"github.com/stonelabs/webduino-generator/internal/cli/config"
	"github.com/stonelabs/webduino-generator/internal/cli/ui"
	"github.com/stonelabs/webduino-generator/internal/generator"
)

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	var (
		force bool
		yes   bool
		mode  string
		ssid  string
		port  int
	)

	cmd := &cobra.Command{
		Use:   "init [target]",
		Short: "Create a new project",
		Long: `Create a 'hello world' project in the target folder (default: current folder).

The project consists of:
  .wgen/        project working folder
  project.wgen  project file with paths, connection and board settings
  input/        demo web files
  template/     copy of the built-in templates
  output/       generated sketch (after 'webduino-generator build')

Examples:
  webduino-generator init
  webduino-generator init my-server -s HomeNet -p 8080
  webduino-generator init my-server --force --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}

			if !generator.IsSupportedMode(mode) {
				return &generator.ModeError{Mode: mode}
			}
			if port < 0 || port > 65535 {
				return fmt.Errorf("%w: port %d out of range 0-65535", generator.ErrInvalidConfig, port)
			}

			return initProject(cmd, target, initOptions{
				force: force,
				yes:   yes,
				cfg:   config.New(mode, ssid, port),
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete existing project files in the target")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before using a non-empty target")
	cmd.Flags().StringVarP(&mode, "mode", "m", generator.DefaultMode, "Connection mode")
	cmd.Flags().StringVarP(&ssid, "ssid", "s", "", "Network SSID")
	cmd.Flags().IntVarP(&port, "port", "p", generator.DefaultPort, "Web server port")

	return cmd
}

type initOptions struct {
	force bool
	yes   bool
	cfg   *config.Config
}

func initProject(cmd *cobra.Command, target string, o initOptions) error {
	out := cmd.OutOrStdout()
	nc := noColor(cmd)
	logger := newLogger(cmd)

	section(out, "Generating 'hello world' project", nc)

	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", target, err)
	}
	if len(entries) > 0 {
		abs, _ := filepath.Abs(target)
		fmt.Fprint(out, ui.Warning(fmt.Sprintf("Target folder (%s) is not empty!", abs), nil, nc))
		if o.force {
			fmt.Fprint(out, ui.Warning("Existing project files will be deleted by this action!", nil, nc))
		} else {
			fmt.Fprint(out, ui.Warning("Data will not be deleted by this action.", nil, nc))
		}

		if !o.yes {
			ok, err := prompter.Confirm("Continue anyway?", false)
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}
	}

	paths := projectPaths(target, o.cfg)

	// Check everything first so a refusal leaves no half initialized project.
	for _, p := range paths {
		if !pathExists(p.path) {
			continue
		}
		if !o.force {
			return fmt.Errorf("%s exists! (%s)", p.name, p.path)
		}
		logger.Debug("removing", zap.String("path", p.path))
		if err := os.RemoveAll(p.path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p.path, err)
		}
	}

	fmt.Fprintln(out, "Creating project files")

	if err := os.Mkdir(filepath.Join(target, config.DirName), 0755); err != nil {
		return fmt.Errorf("failed to create project folder: %w", err)
	}
	if err := o.cfg.Save(target); err != nil {
		return err
	}

	logger.Debug("creating output folder")
	if err := os.Mkdir(o.cfg.OutputDir(), 0755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	logger.Debug("creating input files")
	if err := assets.CopyTo(assets.Demo(), o.cfg.InputDir()); err != nil {
		return fmt.Errorf("failed to create input files: %w", err)
	}

	logger.Debug("creating template files")
	if err := assets.CopyTo(assets.Templates(), o.cfg.TemplateDir()); err != nil {
		return fmt.Errorf("failed to create template files: %w", err)
	}

	ui.WriteSuccess(out, "Project created successfully.", nc)
	fmt.Fprintln(out, "Use 'webduino-generator build' to build your project.")

	return nil
}

type projectPath struct {
	name string
	path string
}

func projectPaths(target string, cfg *config.Config) []projectPath {
	return []projectPath{
		{"Config folder", filepath.Join(target, config.DirName)},
		{"Config file", filepath.Join(target, config.FileName)},
		{"Input folder", filepath.Join(target, cfg.Project.InputPath)},
		{"Template folder", filepath.Join(target, cfg.Project.TemplatePath)},
		{"Output folder", filepath.Join(target, cfg.Project.OutputPath)},
	}
}

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	var (
		quiet   bool
		passEnv string
	)

	cmd := &cobra.Command{
		Use:   "build [target]",
		Short: "Build the project's sketch",
		Long: `Regenerate the sketch of the project containing target (default: current folder).

The project owns its output folder, so the previous sketch is replaced.

Examples:
  webduino-generator build
  WGEN_PASS=secret webduino-generator build my-server -q`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(targetArg(args))
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.OutputDir(), 0755); err != nil {
				return fmt.Errorf("failed to create output folder: %w", err)
			}

			opts := projectOptions(cfg, newLogger(cmd))
			opts.Force = true
			if err := opts.Validate(); err != nil {
				return err
			}

			_, err = runGenerate(cmd, &opts, credentialOptions{passEnv: passEnv, quiet: quiet}, false)
			return err
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not warn about plaintext credentials")
	cmd.Flags().StringVar(&passEnv, "pass-env", DefaultPassEnv, "Environment variable holding the network password")

	return cmd
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// loadProject finds and loads the project containing dir.
func loadProject(dir string) (*config.Config, error) {
	root, err := config.FindRoot(dir)
	if err != nil {
		return nil, &projectError{dir: dir, err: err}
	}
	return config.Load(root)
}

// projectOptions maps a project file onto generator options.
func projectOptions(cfg *config.Config, logger *zap.Logger) generator.Options {
	return generator.Options{
		InputDir:          cfg.InputDir(),
		TemplateDir:       cfg.TemplateDir(),
		OutputDir:         cfg.OutputDir(),
		Mode:              cfg.Connection.Mode,
		SSID:              cfg.Connection.SSID,
		Password:          cfg.Connection.Password,
		Port:              cfg.Connection.Port,
		DynamicExtensions: cfg.Build.DynamicExtensions,
		MimeTypes:         cfg.Build.MimeTypes,
		Workers:           cfg.Build.Workers,
		Logger:            logger,
	}
}
