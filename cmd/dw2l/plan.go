package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dw2tools/dw2file/dw2l"
)

// writePlan writes the tiles of g as rows of hex codes.
func writePlan(w io.Writer, g *dw2l.Geometry) error {
	for y := 0; y < int(g.Height); y++ {
		row := g.Tiles[y*int(g.Width) : (y+1)*int(g.Width)]
		if _, err := fmt.Fprintln(w, hexBytes(row)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) planCommand() *cobra.Command {
	var chunk int
	cmd := &cobra.Command{
		Use:   "plan INPUT",
		Short: "print the tiles of a floor plan",
		Long: `Prints the floor plan in the chunk selected by --chunk, one row of hex tile
codes per line. The chunk may be a layout, in which case its floor plan is
printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, _, err := a.loadLevel(cmd, args[0])
			if err != nil {
				return err
			}
			if chunk < 0 || chunk >= l.Len() {
				return dw2l.IndexError{Index: chunk, Len: l.Len()}
			}

			p := resolvePayload(l, chunk)
			if layout, ok := p.(*dw2l.Layout); ok {
				if !layout.FloorPlan.Valid() || int(layout.FloorPlan) >= l.Len() {
					return fmt.Errorf("chunk %d: layout has no floor plan", chunk)
				}
				p = resolvePayload(l, int(layout.FloorPlan))
			}
			g, ok := p.(*dw2l.Geometry)
			if !ok {
				return fmt.Errorf("chunk %d: %s is not a floor plan", chunk, p.Kind())
			}
			if a.isFormatJSON() {
				rows := make([]string, g.Height)
				for y := range rows {
					rows[y] = hexBytes(g.Tiles[y*int(g.Width) : (y+1)*int(g.Width)])
				}
				return printJSON(cmd, map[string]interface{}{"width": g.Width, "height": g.Height, "rows": rows})
			}
			return writePlan(cmd.OutOrStdout(), g)
		},
	}
	cmd.Flags().IntVar(&chunk, "chunk", 0, "index of the GEOM or LAYT chunk")
	return cmd
}

// FloorInfo describes one floor and its layouts.
type FloorInfo struct {
	Chunk   int      `json:"chunk"`
	Name    string   `json:"name"`
	Layouts []string `json:"layouts"`
}

func floors(l *dw2l.Level) []FloorInfo {
	var list []FloorInfo
	for i := 0; i < l.Len(); i++ {
		f, ok := resolvePayload(l, i).(*dw2l.Floor)
		if !ok {
			continue
		}
		info := FloorInfo{Chunk: i}
		if name, ok := l.Name(f); ok {
			info.Name = name
		}
		for _, r := range f.UniqueLayouts() {
			desc := formatRef(r)
			if p, ok := l.Resolve(r); ok {
				if layout, ok := unwrap(p).(*dw2l.Layout); ok {
					desc += fmt.Sprintf(" (plan %s, warps %s, chests %s, traps %s, digimon %s)",
						formatRef(layout.FloorPlan), formatRef(layout.Warps), formatRef(layout.Chests),
						formatRef(layout.Traps), formatRef(layout.Digimon))
				}
			}
			info.Layouts = append(info.Layouts, desc)
		}
		list = append(list, info)
	}
	return list
}

func (a *app) floorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "floors INPUT",
		Short: "list the floors of a level with their names and layouts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, _, err := a.loadLevel(cmd, args[0])
			if err != nil {
				return err
			}
			list := floors(l)
			if a.isFormatJSON() {
				return printJSON(cmd, list)
			}
			t := newTable(cmd, table.Row{"Chunk", "Name", "Layouts"})
			for _, f := range list {
				for j, desc := range f.Layouts {
					if j == 0 {
						t.AppendRow(table.Row{f.Chunk, f.Name, desc})
					} else {
						t.AppendRow(table.Row{"", "", desc})
					}
				}
				if len(f.Layouts) == 0 {
					t.AppendRow(table.Row{f.Chunk, f.Name, ""})
				}
			}
			t.Render()
			return nil
		},
	}
}
