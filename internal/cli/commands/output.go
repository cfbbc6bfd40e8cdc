package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"

	"github.com/stonelabs/webduino-generator/internal/arduino"
	"github.com/stonelabs/webduino-generator/internal/cli/config"
	"github.com/stonelabs/webduino-generator/internal/cli/ui"
	"github.com/stonelabs/webduino-generator/internal/generator"
	"github.com/stonelabs/webduino-generator/internal/render"
	"github.com/stonelabs/webduino-generator/internal/resource"
)

// dumpWidth caps content shown in verbose dumps.
const dumpWidth = 100

// reportError prints err in the error box matching its kind
func reportError(w io.Writer, err error, noColor bool) {
	var (
		modeErr *generator.ModeError
		toolErr *arduino.ToolError
		exists  *outputExistsError
	)

	switch {
	case errors.As(err, &modeErr):
		suggestions := ui.FindSimilar(modeErr.Mode, generator.SupportedModes, nil)
		if len(suggestions) == 0 {
			suggestions = generator.SupportedModes
		}
		fmt.Fprint(w, ui.ModeError(modeErr.Mode, suggestions, noColor))
	case errors.As(err, &toolErr):
		fmt.Fprint(w, ui.ToolNotFoundError(toolErr.Tool, noColor))
	case errors.As(err, &exists):
		fmt.Fprint(w, ui.OutputExistsError(exists.path, noColor))
	case errors.Is(err, config.ErrNotProject):
		fmt.Fprint(w, ui.NotProjectError(projectDirOf(err), noColor))
	case errors.Is(err, errAborted):
		fmt.Fprint(w, ui.Info("Cancelled.", noColor))
	case errors.Is(err, generator.ErrInvalidPath),
		errors.Is(err, generator.ErrInvalidConfig),
		errors.Is(err, resource.ErrHashCollision),
		errors.Is(err, render.ErrOutputExists):
		fmt.Fprint(w, ui.GenerateError(err.Error(), noColor))
	default:
		errorColor := color.New(color.FgRed, color.Bold)
		if noColor {
			errorColor.DisableColor()
		}
		errorColor.Fprintf(w, "Error: %v\n", err)
	}
}

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted by user")

// outputExistsError carries the refused sketch path to the error report.
type outputExistsError struct {
	path string
}

func (e *outputExistsError) Error() string {
	return fmt.Sprintf("output folder %s exists", e.path)
}

func (e *outputExistsError) Unwrap() error { return render.ErrOutputExists }

// projectError remembers where a project was looked for.
type projectError struct {
	dir string
	err error
}

func (e *projectError) Error() string { return e.err.Error() }
func (e *projectError) Unwrap() error { return e.err }

func projectDirOf(err error) string {
	var pe *projectError
	if errors.As(err, &pe) {
		return pe.dir
	}
	return "."
}

// section prints a headline the way every step of a command starts
func section(w io.Writer, text string, noColor bool) {
	blue := color.New(color.FgBlue, color.Bold)
	white := color.New(color.Bold)
	if noColor {
		blue.DisableColor()
		white.DisableColor()
	}
	fmt.Fprintln(w)
	blue.Fprint(w, ":: ")
	white.Fprintln(w, text)
}

// dumpResult prints the data handed to the templates: input files, file
// data, MIME data and metadata.
func dumpResult(w io.Writer, res *generator.Result, noColor bool) {
	inputs := ui.NewTable(w, []string{"Input Files"}, noColor)
	for _, name := range res.Inputs {
		inputs.AddRow(name)
	}
	inputs.Render()
	fmt.Fprintln(w)

	files := ui.NewTable(w, []string{"Name", "Hash", "Kind", "MIME", "Size", "Content"}, noColor)
	for _, rec := range res.Table.Records() {
		name := rec.Name
		if rec.Default {
			name += " (default)"
		}
		files.AddRow(name, rec.Hash, rec.Kind.String(), rec.Mime, ui.Bytes(rec.Size), shorten(rec.Content, dumpWidth))
	}
	files.Render()
	fmt.Fprintln(w)

	mimes := ui.NewTable(w, []string{"MIME", "Hash"}, noColor)
	for _, mime := range sortedKeys(res.Table.Mimes) {
		mimes.AddRow(mime, res.Table.Mimes[mime])
	}
	mimes.Render()
	fmt.Fprintln(w)

	meta := ui.NewKeyValueTable(w, noColor)
	for _, key := range sortedKeys(res.Metadata) {
		value := res.Metadata[key]
		if key == resource.MetaPass {
			value = mask(value)
		}
		meta.AddRow(key, value)
	}
	meta.Render()
}

// shorten cuts s to n bytes for display, appending an ellipsis marker.
func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "(" + strconv.Itoa(len(s)) + " chars hidden)"
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
