package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stonelabs/webduino-generator/internal/cli/ui"
	"github.com/stonelabs/webduino-generator/internal/generator"
	"github.com/stonelabs/webduino-generator/internal/resource"
)

var inspectFormats = []string{"table", "json", "yaml"}

type inspectReport struct {
	Files   []inspectFile     `json:"files" yaml:"files"`
	Mimes   map[string]string `json:"mimes" yaml:"mimes"`
	Meta    map[string]string `json:"meta" yaml:"meta"`
	Default string            `json:"default,omitempty" yaml:"default,omitempty"`
}

type inspectFile struct {
	Name     string `json:"name" yaml:"name"`
	Hash     string `json:"hash" yaml:"hash"`
	Kind     string `json:"kind" yaml:"kind"`
	Mime     string `json:"mime" yaml:"mime"`
	MimeHash string `json:"mime_hash" yaml:"mime_hash"`
	Size     int64  `json:"size" yaml:"size"`
	Default  bool   `json:"default,omitempty" yaml:"default,omitempty"`
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
}

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	var (
		format   string
		mode     string
		ssid     string
		port     int
		content  bool
		dynamic  []string
		kindName string
	)

	cmd := &cobra.Command{
		Use:   "inspect [input]",
		Short: "Show the data the templates receive",
		Long: `Classify the input folder and print the file data, MIME data and
metadata handed to the templates, without writing anything.

Without an input folder the current project is inspected. The password
is never printed.

Examples:
  webduino-generator inspect ./site
  webduino-generator inspect --format json --content`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(inspectFormats, format) {
				return fmt.Errorf("unknown format %q (did you mean %s?)", format,
					strings.Join(suggest(format, inspectFormats), ", "))
			}
			var kind *resource.Kind
			if kindName != "" {
				k, err := resource.ParseKind(kindName)
				if err != nil {
					return err
				}
				kind = &k
			}

			var opts generator.Options
			if len(args) > 0 {
				opts = generator.Options{
					InputDir: args[0],
					Mode:     mode,
					SSID:     ssid,
					Port:     port,
				}
				if cmd.Flags().Changed("dynamic-ext") {
					opts.DynamicExtensions = dynamic
				}
			} else {
				cfg, err := loadProject(".")
				if err != nil {
					return err
				}
				opts = projectOptions(cfg, nil)
			}
			// Nothing is rendered, so the output folder only has to exist.
			opts.OutputDir = opts.InputDir
			opts.Logger = newLogger(cmd)

			res, err := generator.Prepare(commandContext(cmd), opts)
			if err != nil {
				return err
			}
			if kind != nil {
				if res, err = filterKind(res, *kind); err != nil {
					return err
				}
			}

			return writeReport(cmd.OutOrStdout(), res, format, content, noColor(cmd))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json, yaml)")
	cmd.Flags().StringVarP(&mode, "mode", "m", generator.DefaultMode, "Connection mode")
	cmd.Flags().StringVarP(&ssid, "ssid", "s", "", "Network SSID")
	cmd.Flags().IntVarP(&port, "port", "p", generator.DefaultPort, "Web server port")
	cmd.Flags().BoolVar(&content, "content", false, "Include escaped file content in json and yaml output")
	cmd.Flags().StringVarP(&kindName, "kind", "k", "", "Only show files of this kind (text, binary, dynamic)")
	cmd.Flags().StringSliceVar(&dynamic, "dynamic-ext", []string{".cpp"}, "Extensions inserted as request handlers")

	return cmd
}

func writeReport(w io.Writer, res *generator.Result, format string, content, noColor bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(buildReport(res, content))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(buildReport(res, content)); err != nil {
			return err
		}
		return enc.Close()
	default:
		dumpResult(w, res, noColor)
		return nil
	}
}

func buildReport(res *generator.Result, content bool) inspectReport {
	report := inspectReport{
		Mimes:   res.Table.Mimes,
		Meta:    make(map[string]string, len(res.Metadata)),
		Default: res.Table.Default,
	}

	for k, v := range res.Metadata {
		if k == resource.MetaPass {
			v = mask(v)
		}
		report.Meta[k] = v
	}

	for _, rec := range res.Table.Records() {
		f := inspectFile{
			Name:     rec.Name,
			Hash:     rec.Hash,
			Kind:     rec.Kind.String(),
			Mime:     rec.Mime,
			MimeHash: rec.MimeHash,
			Size:     rec.Size,
			Default:  rec.Default,
		}
		if content {
			f.Content = rec.Content
		}
		report.Files = append(report.Files, f)
	}

	return report
}

// filterKind returns a copy of res whose table only holds files of kind.
func filterKind(res *generator.Result, kind resource.Kind) (*generator.Result, error) {
	table := resource.NewTable()
	for _, rec := range res.Table.Records() {
		if rec.Kind != kind {
			continue
		}
		if err := table.Add(rec); err != nil {
			return nil, err
		}
	}

	filtered := *res
	filtered.Table = table
	return &filtered, nil
}

func suggest(value string, options []string) []string {
	if s := ui.FindSimilar(value, options, nil); len(s) > 0 {
		return s
	}
	return options
}
