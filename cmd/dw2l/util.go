package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/dw2tools/dw2file/dw2l"
	"github.com/dw2tools/dw2file/errors"
	"github.com/dw2tools/dw2file/internal/metrics"
)

const formatJSON = "json"

func (a *app) isFormatJSON() bool {
	return strings.ToLower(a.format) == formatJSON
}

// failed reports err on w as a table, or as JSON under --format json.
func (a *app) failed(w io.Writer, err error) {
	if a.isFormatJSON() {
		data, _ := json.Marshal(map[string]string{"ERROR": err.Error()})
		color.New(color.FgRed).Fprintln(w, string(data))
		return
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"ERROR"})
	t.AppendRow(table.Row{err.Error()})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, VAlign: text.VAlignMiddle, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
	})
	t.SetOutputMirror(w)
	t.Render()
}

// printJSON writes v to the command output as indented JSON.
func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// newTable returns a table writer that renders to the command output.
func newTable(cmd *cobra.Command, header table.Row) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(header)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}

// readInput reads the whole file at path, or stdin if path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

// writeOutput writes b to the file at path, or stdout if path is "-".
func writeOutput(cmd *cobra.Command, path string, b []byte) error {
	if path == "-" {
		if _, err := io.Copy(cmd.OutOrStdout(), bytes.NewReader(b)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// reportWriter returns where a command that writes a file to output reports
// its summary.
func reportWriter(cmd *cobra.Command, output string) io.Writer {
	if output == "-" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

// decode decodes b under the configured policy.
func (a *app) decode(b []byte) (*dw2l.Level, errors.Errors, error) {
	start := time.Now()
	l, warn, err := dw2l.Decoder{Policy: a.cfg.Policy, Logger: a.log}.Decode(b)
	a.metrics.Observe(metrics.OpDecode, l, len(b), start, warn, err)
	if err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	return l, errors.List(warn), nil
}

// encode encodes l under the configured policy.
func (a *app) encode(l *dw2l.Level) ([]byte, error) {
	start := time.Now()
	b, warn, err := dw2l.Encoder{Policy: a.cfg.Policy, Logger: a.log}.Encode(l)
	a.metrics.Observe(metrics.OpEncode, l, len(b), start, warn, err)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b, nil
}

// loadLevel reads and decodes the file at path.
func (a *app) loadLevel(cmd *cobra.Command, path string) (*dw2l.Level, []byte, errors.Errors, error) {
	b, err := readInput(cmd, path)
	if err != nil {
		return nil, nil, nil, err
	}
	l, warn, err := a.decode(b)
	if err != nil {
		return nil, nil, nil, err
	}
	return l, b, warn, nil
}

// resolvePayload returns the payload of chunk i, looking through compression.
func resolvePayload(l *dw2l.Level, i int) dw2l.Payload {
	return unwrap(l.Payload(i))
}

func unwrap(p dw2l.Payload) dw2l.Payload {
	if c, ok := p.(*dw2l.Compressed); ok {
		return c.Inner
	}
	return p
}

func hexBytes(b []byte) string {
	var s strings.Builder
	for i, c := range b {
		if i > 0 {
			s.WriteByte(' ')
		}
		fmt.Fprintf(&s, "%02X", c)
	}
	return s.String()
}
