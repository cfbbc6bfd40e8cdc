// Package arduino drives the arduino-cli and Arduino IDE programs to list
// boards, compile and upload a generated sketch, or open it for editing.
package arduino

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// CLITool is the arduino-cli executable name.
	CLITool = "arduino-cli"
	// IDETool is the Arduino IDE executable name.
	IDETool = "arduino"
	// SketchFile is the entry file the IDE is opened with.
	SketchFile = "main.ino"
)

var (
	// ErrToolNotFound is returned when an executable is not on PATH.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidOutput is returned when arduino-cli prints something other
	// than the expected JSON document.
	ErrInvalidOutput = errors.New("invalid arduino-cli output")
	// ErrNoBoards is returned when a board listing is empty.
	ErrNoBoards = errors.New("no boards found")
)

// ToolError names the missing executable.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("could not locate '%s': %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return ErrToolNotFound }

// ExitError reports a non-zero exit code.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", filepath.Base(e.Tool), e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Board is a board known to arduino-cli. Address is only set for boards
// that are currently connected.
type Board struct {
	Name    string `json:"name" yaml:"name"`
	FQBN    string `json:"fqbn" yaml:"fqbn"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Label is the text shown when asking the user to pick a board.
func (b Board) Label() string {
	if b.Address == "" {
		return b.Name
	}
	return b.Address + ": " + b.Name
}

// Client wraps the external Arduino tools.
type Client struct {
	runner Runner
	logger *zap.Logger
}

// New creates a client. A nil runner uses os/exec, a nil logger discards.
func New(runner Runner, logger *zap.Logger) *Client {
	if runner == nil {
		runner = NewExecRunner()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{runner: runner, logger: logger}
}

func (c *Client) tool(name string) (string, error) {
	path, err := c.runner.LookPath(name)
	if err != nil {
		return "", &ToolError{Tool: name, Err: err}
	}
	c.logger.Debug("tool located", zap.String("tool", name), zap.String("path", path))
	return path, nil
}

func (c *Client) query(ctx context.Context, args ...string) ([]byte, error) {
	cli, err := c.tool(CLITool)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("calling arduino-cli", zap.Strings("args", args))
	out, err := c.runner.Output(ctx, cli, args...)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("arduino-cli response", zap.ByteString("stdout", out))

	return out, nil
}

// ListAll returns every board arduino-cli knows about, connected or not.
// Entries without a name or FQBN are skipped.
func (c *Client) ListAll(ctx context.Context) ([]Board, error) {
	out, err := c.query(ctx, "board", "listall", "--format=json")
	if err != nil {
		return nil, err
	}

	boards, err := parseListAll(out)
	if err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return nil, ErrNoBoards
	}
	return boards, nil
}

// Connected returns the boards attached to a serial port. Ports that match
// no board, or more than one, are skipped.
func (c *Client) Connected(ctx context.Context) ([]Board, error) {
	out, err := c.query(ctx, "board", "list", "--format=json")
	if err != nil {
		return nil, err
	}

	boards, err := parseList(out)
	if err != nil {
		return nil, err
	}
	if len(boards) == 0 {
		return nil, ErrNoBoards
	}
	return boards, nil
}

// Compile builds the sketch in sketchDir for the given board.
func (c *Client) Compile(ctx context.Context, sketchDir, fqbn string) error {
	cli, err := c.tool(CLITool)
	if err != nil {
		return err
	}
	if fqbn == "" {
		return fmt.Errorf("compile: no board selected")
	}

	c.logger.Info("compiling sketch", zap.String("sketch", sketchDir), zap.String("fqbn", fqbn))
	return c.runner.Run(ctx, cli, "compile", "--fqbn", fqbn, sketchDir)
}

// Upload flashes the sketch in sketchDir to the board at address.
func (c *Client) Upload(ctx context.Context, sketchDir string, board Board) error {
	cli, err := c.tool(CLITool)
	if err != nil {
		return err
	}
	if board.FQBN == "" || board.Address == "" {
		return fmt.Errorf("upload: board %q has no fqbn or port", board.Name)
	}

	c.logger.Info("uploading sketch",
		zap.String("sketch", sketchDir),
		zap.String("fqbn", board.FQBN),
		zap.String("port", board.Address))
	return c.runner.Run(ctx, cli, "upload", "-p", board.Address, "--fqbn", board.FQBN, sketchDir)
}

// Open launches the Arduino IDE on the sketch in sketchDir.
func (c *Client) Open(sketchDir string) error {
	ide, err := c.tool(IDETool)
	if err != nil {
		return err
	}

	sketch := filepath.Join(sketchDir, SketchFile)
	c.logger.Info("opening sketch", zap.String("sketch", sketch))
	return c.runner.Start(ide, sketch)
}

func parseListAll(out []byte) ([]Board, error) {
	var doc struct {
		Boards *[]Board `json:"boards"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if doc.Boards == nil {
		return nil, fmt.Errorf("%w: missing boards list", ErrInvalidOutput)
	}

	boards := make([]Board, 0, len(*doc.Boards))
	for _, b := range *doc.Boards {
		if b.Name == "" || b.FQBN == "" {
			continue
		}
		boards = append(boards, Board{Name: b.Name, FQBN: b.FQBN})
	}
	return boards, nil
}

// detectedPort covers the shapes `board list` has printed across
// arduino-cli releases: a flat address with boards, or a nested port
// with matching_boards.
type detectedPort struct {
	Address        string       `json:"address"`
	Boards         []Board      `json:"boards"`
	Port           *portAddress `json:"port"`
	MatchingBoards []Board      `json:"matching_boards"`
}

type portAddress struct {
	Address string `json:"address"`
}

func (p detectedPort) board() (Board, bool) {
	address := p.Address
	if p.Port != nil && p.Port.Address != "" {
		address = p.Port.Address
	}
	candidates := p.Boards
	if len(candidates) == 0 {
		candidates = p.MatchingBoards
	}

	if address == "" || len(candidates) != 1 {
		return Board{}, false
	}
	b := candidates[0]
	if b.Name == "" || b.FQBN == "" {
		return Board{}, false
	}
	return Board{Name: b.Name, FQBN: b.FQBN, Address: address}, true
}

func parseList(out []byte) ([]Board, error) {
	var ports []detectedPort

	trimmed := strings.TrimSpace(string(out))
	if strings.HasPrefix(trimmed, "{") {
		var doc struct {
			DetectedPorts []detectedPort `json:"detected_ports"`
		}
		if err := json.Unmarshal(out, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		ports = doc.DetectedPorts
	} else if err := json.Unmarshal(out, &ports); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	var boards []Board
	for _, p := range ports {
		if b, ok := p.board(); ok {
			boards = append(boards, b)
		}
	}
	return boards, nil
}
