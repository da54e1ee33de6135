package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dw2tools/dw2file/dw2l"
)

// transform decodes input, lets edit change the level, then encodes the
// level to output. It reports the number of chunks edit changed.
func (a *app) transform(cmd *cobra.Command, input, output string, edit func(*dw2l.Level) (int, error)) error {
	l, in, _, err := a.loadLevel(cmd, input)
	if err != nil {
		return err
	}
	changed := 0
	if edit != nil {
		if changed, err = edit(l); err != nil {
			return err
		}
	}
	out, err := a.encode(l)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, output, out); err != nil {
		return err
	}

	w := reportWriter(cmd, output)
	switch {
	case bytes.Equal(in, out):
		fmt.Fprintf(w, "%d bytes, identical\n", len(out))
	default:
		fmt.Fprintf(w, "%d -> %d bytes, %d chunks changed\n", len(in), len(out), changed)
	}
	return nil
}

func (a *app) rewriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite INPUT OUTPUT",
		Short: "decode a level file and encode it again",
		Long: `Decodes INPUT and encodes the result to OUTPUT under the configured policy.
Reports whether the output is identical to the input.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transform(cmd, args[0], args[1], nil)
		},
	}
}

// kindSet parses kind codes given on the command line. An empty list
// selects every kind.
func kindSet(codes []string) (func(dw2l.Kind) bool, error) {
	if len(codes) == 0 {
		return func(dw2l.Kind) bool { return true }, nil
	}
	set := make(map[dw2l.Kind]bool, len(codes))
	for _, code := range codes {
		k, ok := dw2l.ParseKind(code)
		if !ok {
			return nil, fmt.Errorf("invalid kind %q: must be four characters", code)
		}
		set[k] = true
	}
	return func(k dw2l.Kind) bool { return set[k] }, nil
}

func (a *app) compressCommand() *cobra.Command {
	var kinds []string
	cmd := &cobra.Command{
		Use:   "compress INPUT OUTPUT",
		Short: "store chunks LZ4-compressed",
		Long: `Wraps every chunk of the selected kinds in an LZ4C chunk. Without --kind,
every chunk that is not already compressed is selected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := kindSet(kinds)
			if err != nil {
				return err
			}
			return a.transform(cmd, args[0], args[1], func(l *dw2l.Level) (int, error) {
				n := 0
				for i := 0; i < l.Len(); i++ {
					p := l.Payload(i)
					if p.Kind() == dw2l.KindCompressed || !match(p.Kind()) {
						continue
					}
					if err := l.SetPayload(i, dw2l.Compress(p)); err != nil {
						return n, err
					}
					n++
				}
				return n, nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "kind of chunk to compress, such as GEOM (repeatable)")
	return cmd
}

func (a *app) decompressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decompress INPUT OUTPUT",
		Short: "store every compressed chunk uncompressed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transform(cmd, args[0], args[1], func(l *dw2l.Level) (int, error) {
				n := 0
				for i := 0; i < l.Len(); i++ {
					c, ok := l.Payload(i).(*dw2l.Compressed)
					if !ok {
						continue
					}
					if err := l.SetPayload(i, c.Inner); err != nil {
						return n, err
					}
					n++
				}
				return n, nil
			})
		},
	}
}
