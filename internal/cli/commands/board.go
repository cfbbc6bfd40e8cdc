package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stonelabs/webduino-generator/internal/arduino"
	"github.com/stonelabs/webduino-generator/internal/cli/config"
	"github.com/stonelabs/webduino-generator/internal/cli/ui"
	"github.com/stonelabs/webduino-generator/internal/generator"
)

// newArduinoClient is replaced in tests.
var newArduinoClient = func(logger *zap.Logger) *arduino.Client {
	return arduino.New(nil, logger)
}

// NewCompileCommand creates the compile command
func NewCompileCommand() *cobra.Command {
	var reselect bool

	cmd := &cobra.Command{
		Use:   "compile [target]",
		Short: "Compile the project's sketch with arduino-cli",
		Long: `Compile the generated sketch for a board.

The board is picked from 'arduino-cli board listall' the first time and
remembered in project.wgen.

Examples:
  webduino-generator compile
  webduino-generator compile --select`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sketch, err := loadSketch(targetArg(args))
			if err != nil {
				return err
			}

			client := newArduinoClient(newLogger(cmd))
			ctx := commandContext(cmd)

			board, err := chooseBoard(ctx, cfg, client, reselect, false)
			if err != nil {
				return err
			}

			section(cmd.OutOrStdout(), fmt.Sprintf("Compiling sketch for %s", board.Name), noColor(cmd))
			if err := client.Compile(ctx, sketch, board.FQBN); err != nil {
				return err
			}

			ui.WriteSuccess(cmd.OutOrStdout(), "Sketch compiled.", noColor(cmd))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reselect, "select", false, "Pick the board again")

	return cmd
}

// NewUploadCommand creates the upload command
func NewUploadCommand() *cobra.Command {
	var reselect bool

	cmd := &cobra.Command{
		Use:   "upload [target]",
		Short: "Upload the project's sketch to a connected board",
		Long: `Upload the generated sketch with arduino-cli.

The board is picked from 'arduino-cli board list' the first time and
remembered, with its port, in project.wgen.

Examples:
  webduino-generator upload
  webduino-generator upload --select`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sketch, err := loadSketch(targetArg(args))
			if err != nil {
				return err
			}

			client := newArduinoClient(newLogger(cmd))
			ctx := commandContext(cmd)

			board, err := chooseBoard(ctx, cfg, client, reselect, true)
			if err != nil {
				return err
			}

			section(cmd.OutOrStdout(), fmt.Sprintf("Uploading sketch to %s", board.Label()), noColor(cmd))
			if err := client.Upload(ctx, sketch, board); err != nil {
				return err
			}

			ui.WriteSuccess(cmd.OutOrStdout(), "Sketch uploaded.", noColor(cmd))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reselect, "select", false, "Pick the board again")

	return cmd
}

// NewOpenCommand creates the open command
func NewOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open [target]",
		Short: "Open the project's sketch in the Arduino IDE",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sketch, err := loadSketch(targetArg(args))
			if err != nil {
				return err
			}

			if err := newArduinoClient(newLogger(cmd)).Open(sketch); err != nil {
				return err
			}

			ui.WriteSuccess(cmd.OutOrStdout(), "Opened "+filepath.Join(sketch, arduino.SketchFile), noColor(cmd))
			return nil
		},
	}
}

// loadSketch loads the project containing dir and checks that it has been
// built.
func loadSketch(dir string) (*config.Config, string, error) {
	cfg, err := loadProject(dir)
	if err != nil {
		return nil, "", err
	}

	sketch := filepath.Join(cfg.OutputDir(), generator.SketchDir)
	if !pathExists(filepath.Join(sketch, arduino.SketchFile)) {
		return nil, "", fmt.Errorf("no sketch in %s, run 'webduino-generator build' first", sketch)
	}

	return cfg, sketch, nil
}

// chooseBoard returns the board remembered in the project or lets the user
// pick one and remembers it. Uploads need a connected board with a port.
func chooseBoard(ctx context.Context, cfg *config.Config, client *arduino.Client, reselect, connected bool) (arduino.Board, error) {
	saved := arduino.Board{
		Name:    cfg.Board.Name,
		FQBN:    cfg.Board.FQBN,
		Address: cfg.Board.Address,
	}
	if !reselect && saved.FQBN != "" && (!connected || saved.Address != "") {
		return saved, nil
	}

	var (
		boards []arduino.Board
		err    error
	)
	if connected {
		boards, err = client.Connected(ctx)
	} else {
		boards, err = client.ListAll(ctx)
	}
	if err != nil {
		return arduino.Board{}, err
	}

	labels := make([]string, len(boards))
	for i, b := range boards {
		labels[i] = b.Label()
	}

	idx, err := prompter.Select("Please select target board:", labels)
	if err != nil {
		return arduino.Board{}, err
	}
	if idx < 0 || idx >= len(boards) {
		return arduino.Board{}, fmt.Errorf("invalid board selection %d", idx)
	}

	board := boards[idx]
	if !connected && board.FQBN == saved.FQBN {
		board.Address = saved.Address
	}

	cfg.Board = config.BoardConfig{
		Name:    board.Name,
		FQBN:    board.FQBN,
		Address: board.Address,
	}
	if err := cfg.Save(cfg.Root()); err != nil {
		return arduino.Board{}, err
	}

	return board, nil
}
