package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dw2tools/dw2file/dw2l"
)

// StringEntry is one entry of a string table.
type StringEntry struct {
	Chunk int    `json:"chunk"`
	Entry int    `json:"entry"`
	Bytes string `json:"bytes"`
	Text  string `json:"text"`
}

// stringEntries lists the entries of every string table of l, compressed or
// not.
func stringEntries(l *dw2l.Level) ([]StringEntry, error) {
	var entries []StringEntry
	for i := 0; i < l.Len(); i++ {
		t, ok := resolvePayload(l, i).(*dw2l.StringTable)
		if !ok {
			continue
		}
		for j, b := range t.Entries {
			s, err := t.Text(j)
			if err != nil {
				return nil, err
			}
			entries = append(entries, StringEntry{Chunk: i, Entry: j, Bytes: hexBytes(b), Text: s})
		}
	}
	return entries, nil
}

func (a *app) stringsCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "strings INPUT",
		Short: "list the text of every string table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, _, err := a.loadLevel(cmd, args[0])
			if err != nil {
				return err
			}
			entries, err := stringEntries(l)
			if err != nil {
				return err
			}

			if a.isFormatJSON() {
				return printJSON(cmd, entries)
			}
			header := table.Row{"Chunk", "Entry", "Text"}
			if raw {
				header = append(header, "Bytes")
			}
			t := newTable(cmd, header)
			for _, e := range entries {
				row := table.Row{e.Chunk, e.Entry, e.Text}
				if raw {
					row = append(row, e.Bytes)
				}
				t.AppendRow(row)
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "also show the encoded bytes")
	return cmd
}
