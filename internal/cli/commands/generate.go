package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/cli/ui"
	"github.com/stonelabs/webduino-generator/internal/generator"
	"github.com/stonelabs/webduino-generator/internal/render"
	"github.com/stonelabs/webduino-generator/internal/resource"
)

// DefaultPassEnv names the environment variable the password is read from.
const DefaultPassEnv = "WGEN_PASS"

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	var (
		templateDir string
		ssid        string
		mode        string
		output      string
		passEnv     string
		port        int
		workers     int
		quiet       bool
		force       bool
		dynamic     []string
	)

	cmd := &cobra.Command{
		Use:     "generate <input>",
		Aliases: []string{"g"},
		Short:   "Generate a sketch from a folder of web files",
		Long: `Generate an Arduino sketch that serves every file of the input folder.

The sketch is written to <output>/main. Files ending in .cpp are inserted
as request handlers, every other file is embedded as a static response.

The network password is read from $WGEN_PASS when set and prompted for
otherwise. SSID and password end up in plain text in the sketch.

Examples:
  webduino-generator generate ./site
  webduino-generator generate ./site -o build -s HomeNet -p 8080
  webduino-generator generate ./site -t ./my-templates --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := generator.Options{
				InputDir:    args[0],
				TemplateDir: templateDir,
				OutputDir:   output,
				Mode:        mode,
				SSID:        ssid,
				Port:        port,
				Force:       force,
				Workers:     workers,
				Logger:      newLogger(cmd),
			}
			if cmd.Flags().Changed("dynamic-ext") {
				opts.DynamicExtensions = dynamic
			}

			// Fail on bad paths and settings before asking for anything.
			if err := opts.Validate(); err != nil {
				return err
			}

			_, err := runGenerate(cmd, &opts, credentialOptions{passEnv: passEnv, quiet: quiet}, true)
			return err
		},
	}

	cmd.Flags().StringVarP(&templateDir, "template", "t", "", "Template folder (built-in templates when empty)")
	cmd.Flags().StringVarP(&ssid, "ssid", "s", "", "Network SSID (prompted when empty)")
	cmd.Flags().IntVarP(&port, "port", "p", generator.DefaultPort, "Web server port")
	cmd.Flags().StringVarP(&mode, "mode", "m", generator.DefaultMode, "Connection mode")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not warn about plaintext credentials")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Output folder; the sketch is written to <output>/main")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing sketch without asking")
	cmd.Flags().StringVar(&passEnv, "pass-env", DefaultPassEnv, "Environment variable holding the network password")
	cmd.Flags().IntVar(&workers, "workers", 0, "Files classified in parallel (0 = number of CPUs)")
	cmd.Flags().StringSliceVar(&dynamic, "dynamic-ext", []string{".cpp"}, "Extensions inserted as request handlers")

	return cmd
}

type credentialOptions struct {
	passEnv string
	quiet   bool
}

// askCredentials fills in SSID and password, prompting for what is missing.
func askCredentials(cmd *cobra.Command, opts *generator.Options, creds credentialOptions) error {
	if !creds.quiet {
		fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("SSID and password will be saved as plaintext in the output!", nil, noColor(cmd)))
	}

	if opts.SSID == "" {
		ssid, err := prompter.Input("SSID:", "")
		if err != nil {
			return err
		}
		opts.SSID = ssid
	}

	if opts.Password == "" {
		if creds.passEnv != "" {
			opts.Password = os.Getenv(creds.passEnv)
		}
	}
	if opts.Password == "" {
		pass, err := prompter.Password("Password:")
		if err != nil {
			return err
		}
		opts.Password = pass
	}

	return nil
}

// runGenerate asks for credentials, settles what happens to an existing
// sketch and runs the pipeline with a progress bar. With confirm unset an
// existing sketch is refused instead of offered for deletion.
func runGenerate(cmd *cobra.Command, opts *generator.Options, creds credentialOptions, confirm bool) (*generator.Result, error) {
	out := cmd.OutOrStdout()
	nc := noColor(cmd)

	if opts.TemplateDir == "" {
		opts.Logger.Debug("using built-in templates")
	}

	if err := askCredentials(cmd, opts, creds); err != nil {
		return nil, err
	}

	sketch := filepath.Join(opts.OutputDir, generator.SketchDir)
	if !opts.Force && pathExists(sketch) {
		if !confirm {
			return nil, &outputExistsError{path: sketch}
		}
		fmt.Fprint(out, ui.Warning(fmt.Sprintf("Output folder %s exists!", sketch), nil, nc))
		ok, err := prompter.Confirm("Delete it and continue?", false)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errAborted
		}
		opts.Force = true
	}

	section(out, "Processing input files...", nc)

	inputs, err := resource.WalkDir(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input files: %w", err)
	}

	var res *generator.Result
	err = ui.WithProgress(cmd.ErrOrStderr(), "files", len(inputs), nc, func(bar *ui.ProgressBar) error {
		run := *opts
		run.OnFile = func(rec *resource.FileRecord) { bar.Step(rec.Name) }

		var err error
		res, err = generator.Generate(commandContext(cmd), run)
		return err
	})
	if err != nil {
		if errors.Is(err, render.ErrOutputExists) {
			return nil, &outputExistsError{path: sketch}
		}
		return nil, err
	}

	if verbose(cmd) {
		section(out, "Data available to the templates", nc)
		dumpResult(out, res, nc)
	}

	opts.Logger.Debug("generation finished", zap.Strings("outputs", res.Outputs))
	ui.WriteSuccess(out, fmt.Sprintf("Generated %d files from %d inputs into %s", len(res.Outputs), res.Table.Len(), res.SketchDir), nc)

	return res, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
