package main

import (
	"encoding/hex"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/dw2tools/dw2file/dw2l"
)

// ChunkStats describes one chunk of a level.
type ChunkStats struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Inner   string `json:"inner,omitempty"`
	Offset  uint32 `json:"offset"`
	Length  uint32 `json:"length"`
	Padding int    `json:"padding"`
	Digest  string `json:"digest"`
	Summary string `json:"summary"`
}

// Stats describes a level file.
type Stats struct {
	Size             int          `json:"size"`
	Version          uint32       `json:"version"`
	ChunkCount       uint32       `json:"chunk_count"`
	ChunkTableOffset uint32       `json:"chunk_table_offset"`
	TablePadding     int          `json:"table_padding"`
	Trailer          int          `json:"trailer"`
	Chunks           []ChunkStats `json:"chunks"`
	Warnings         []string     `json:"warnings,omitempty"`
}

// Fill sets the statistics of the decoded level l, read from size bytes.
func (s *Stats) Fill(l *dw2l.Level, size int) error {
	h := l.Header()
	s.Size = size
	s.Version = h.Version
	s.ChunkCount = h.ChunkCount
	s.ChunkTableOffset = h.ChunkTableOffset
	s.TablePadding = len(l.TablePadding())
	s.Trailer = len(l.Trailer())

	s.Chunks = make([]ChunkStats, l.Len())
	for i, d := range l.Descriptors() {
		p := l.Payload(i)
		digest, err := dw2l.Digest(p)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		c := ChunkStats{
			Index:   i,
			Kind:    d.Kind.String(),
			Offset:  d.Offset,
			Length:  d.Length,
			Padding: len(l.Padding(i)),
			Digest:  hex.EncodeToString(digest[:8]),
			Summary: summary(l, resolvePayload(l, i)),
		}
		if comp, ok := p.(*dw2l.Compressed); ok {
			c.Inner = comp.InnerKind().String()
		}
		s.Chunks[i] = c
	}
	return nil
}

// summary describes the content of a payload in a few words.
func summary(l *dw2l.Level, p dw2l.Payload) string {
	switch p := p.(type) {
	case *dw2l.Geometry:
		return fmt.Sprintf("%dx%d tiles", p.Width, p.Height)
	case *dw2l.EntityTable:
		return fmt.Sprintf("%d entities", len(p.Entities))
	case *dw2l.StringTable:
		return fmt.Sprintf("%d strings", len(p.Entries))
	case *dw2l.Layout:
		return fmt.Sprintf("plan %s", formatRef(p.FloorPlan))
	case *dw2l.Floor:
		name, ok := l.Name(p)
		if !ok {
			name = "?"
		}
		return fmt.Sprintf("%q, %d layouts", name, len(p.UniqueLayouts()))
	case *dw2l.Opaque:
		return fmt.Sprintf("%d bytes, not decoded", len(p.Bytes))
	default:
		return ""
	}
}

func formatRef(r dw2l.ChunkRef) string {
	if !r.Valid() {
		return "-"
	}
	return fmt.Sprintf("#%d", r)
}

func (a *app) statCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat INPUT",
		Short: "display the header and chunk table of a level file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, b, warn, err := a.loadLevel(cmd, args[0])
			if err != nil {
				return err
			}

			var stats Stats
			if err := stats.Fill(l, len(b)); err != nil {
				return err
			}
			for _, w := range warn {
				stats.Warnings = append(stats.Warnings, w.Error())
			}

			if a.isFormatJSON() {
				return printJSON(cmd, stats)
			}

			t := newTable(cmd, table.Row{"Size", "Version", "Chunks", "Table", "Table Padding", "Trailer", "Warnings"})
			t.AppendRow(table.Row{stats.Size, stats.Version, stats.ChunkCount, stats.ChunkTableOffset,
				stats.TablePadding, stats.Trailer, len(stats.Warnings)})
			t.Render()

			t = newTable(cmd, table.Row{"#", "Kind", "Inner", "Offset", "Length", "Padding", "Digest", "Summary"})
			for _, c := range stats.Chunks {
				t.AppendRow(table.Row{c.Index, c.Kind, c.Inner, c.Offset, c.Length, c.Padding, c.Digest, c.Summary})
			}
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 1, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
				{Number: 5, Align: text.AlignRight},
			})
			t.Render()
			return nil
		},
	}
	return cmd
}

func (a *app) dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump INPUT",
		Short: "write a readable representation of every chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, _, err := a.loadLevel(cmd, args[0])
			if err != nil {
				return err
			}
			return dw2l.Dump(cmd.OutOrStdout(), l)
		},
	}
}
