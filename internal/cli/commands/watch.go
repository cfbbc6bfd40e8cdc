package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stonelabs/webduino-generator/internal/cli/ui"
	"github.com/stonelabs/webduino-generator/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var (
		quiet     bool
		passEnv   string
		delay     time.Duration
		cacheSize int
		serve     string
	)

	cmd := &cobra.Command{
		Use:   "watch [target]",
		Short: "Rebuild the project's sketch whenever its files change",
		Long: `Build the project, then watch its input and template folders and
rebuild on every change. Files that did not change are not read again.

A failed rebuild leaves the previous sketch in place.

With --serve the input folder is also served over HTTP the way the board
would serve it, and open pages reload after every successful rebuild.

Examples:
  webduino-generator watch
  webduino-generator watch my-server --delay 500ms
  webduino-generator watch --serve localhost:8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(targetArg(args))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.OutputDir(), 0755); err != nil {
				return fmt.Errorf("failed to create output folder: %w", err)
			}

			logger := newLogger(cmd)
			opts := projectOptions(cfg, logger)
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := askCredentials(cmd, &opts, credentialOptions{passEnv: passEnv, quiet: quiet}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			nc := noColor(cmd)
			rebuilder, err := watch.NewRebuilder(opts, cacheSize)
			if err != nil {
				return err
			}

			var (
				reload  *watch.ReloadServer
				preview *watch.PreviewServer
			)
			if serve != "" {
				reload = watch.NewReloadServer(logger)
				preview = watch.NewPreviewServer(cfg.InputDir(), reload, logger)
			}

			report := func(res *watch.BuildResult) {
				if res.Err != nil {
					reportError(cmd.ErrOrStderr(), res.Err, nc)
					if reload != nil {
						reload.NotifyError(res.Err)
					}
					return
				}
				if preview != nil {
					preview.Update(res.Result)
					reload.NotifyReload(res.Duration)
				}
				ui.WriteSuccess(out, fmt.Sprintf("Built %d files into %s in %s",
					res.Result.Table.Len(), res.Result.SketchDir, res.Duration.Round(time.Millisecond)), nc)
			}

			section(out, "Building project", nc)
			report(rebuilder.FullBuild(ctx))

			watcher, err := watch.NewFileWatcher(watch.Options{
				Roots:   rebuilder.Roots(),
				Ignored: []string{"*.swp", "*.swo", "*.tmp", "4913"},
				Delay:   delay,
				Logger:  logger,
				OnChange: func(files []string) {
					section(out, fmt.Sprintf("%d file(s) changed, rebuilding", len(files)), nc)
					if reload != nil {
						reload.NotifyBuilding(files)
					}
					report(rebuilder.Build(ctx, files))
				},
			})
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				watcher.Stop()
				return err
			}
			defer watcher.Stop()

			if preview != nil {
				addr, err := preview.Start(serve)
				if err != nil {
					reload.Close()
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					preview.Shutdown(shutdownCtx)
				}()
				fmt.Fprint(out, ui.Info("Previewing input at http://"+addr, nc))
			}

			fmt.Fprint(out, ui.Info("Watching for changes. Press Ctrl+C to stop.", nc))

			<-ctx.Done()
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not warn about plaintext credentials")
	cmd.Flags().StringVar(&passEnv, "pass-env", DefaultPassEnv, "Environment variable holding the network password")
	cmd.Flags().DurationVar(&delay, "delay", watch.DefaultDelay, "Quiet period before a rebuild starts")
	cmd.Flags().IntVar(&cacheSize, "cache-size", 1024, "Classified files kept between rebuilds")
	cmd.Flags().StringVar(&serve, "serve", "", "Serve a live preview of the input folder on this address")

	return cmd
}
