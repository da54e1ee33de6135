package dw2l

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Dump writes to w a readable representation of every chunk of l, including
// padding and the trailer.
func Dump(w io.Writer, l *Level) error {
	if l == nil {
		return ErrNilLevel
	}

	bw := bufio.NewWriter(w)
	h := l.Header()
	fmt.Fprintf(bw, "Version: %d", h.Version)
	fmt.Fprintf(bw, "\nChunkTableOffset: %d", h.ChunkTableOffset)
	if pad := l.TablePadding(); len(pad) > 0 {
		bw.WriteString("\nTablePadding: ")
		dumpBytes(bw, 0, pad)
	}
	fmt.Fprintf(bw, "\nChunks: (count:%d) {", l.Len())
	for i := 0; i < l.Len(); i++ {
		d, _ := l.Descriptor(i)
		if pad := l.Padding(i); len(pad) > 0 {
			dumpNewline(bw, 1)
			bw.WriteString("Padding: ")
			dumpBytes(bw, 1, pad)
		}
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "#%d: ", i)
		dumpKind(bw, d.Kind)
		fmt.Fprintf(bw, " (offset:%d) (len:%d) {", d.Offset, d.Length)
		dumpPayload(bw, 2, l, l.Payload(i))
		dumpNewline(bw, 1)
		bw.WriteByte('}')
	}
	bw.WriteString("\n}")
	if t := l.Trailer(); len(t) > 0 {
		bw.WriteString("\nTrailer: ")
		dumpBytes(bw, 0, t)
	}
	bw.WriteByte('\n')

	return bw.Flush()
}

func dumpPayload(w *bufio.Writer, indent int, l *Level, p Payload) {
	switch p := p.(type) {
	case *Geometry:
		dumpNewline(w, indent)
		fmt.Fprintf(w, "Size: %dx%d", p.Width, p.Height)
		dumpNewline(w, indent)
		w.WriteString("Tiles: ")
		dumpBytes(w, indent, p.Tiles)
	case *EntityTable:
		dumpNewline(w, indent)
		fmt.Fprintf(w, "Entities: (count:%d) {", len(p.Entities))
		for i, e := range p.Entities {
			dumpNewline(w, indent+1)
			fmt.Fprintf(w, "%d: %s at (%d,%d) id:%d param:%d flags:%02X", i, e.Class, e.X, e.Y, e.ID, e.Param, e.Flags)
			if e.Extra != 0 {
				fmt.Fprintf(w, " extra:%08X", e.Extra)
			}
		}
		dumpNewline(w, indent)
		w.WriteByte('}')
	case *StringTable:
		dumpNewline(w, indent)
		fmt.Fprintf(w, "Entries: (count:%d) {", len(p.Entries))
		for i, b := range p.Entries {
			dumpNewline(w, indent+1)
			fmt.Fprintf(w, "%d: ", i)
			if s, err := p.Text(i); err == nil {
				fmt.Fprintf(w, "(len:%d) %s", len(b), strconv.Quote(s))
			} else {
				dumpBytes(w, indent+1, b)
			}
		}
		dumpNewline(w, indent)
		w.WriteByte('}')
	case *Layout:
		for _, r := range p.refs() {
			dumpNewline(w, indent)
			fmt.Fprintf(w, "%s: ", r.field)
			dumpRef(w, l, r.ref)
		}
		if p.Reserved != 0 {
			dumpNewline(w, indent)
			fmt.Fprintf(w, "reserved: %04X", p.Reserved)
		}
	case *Floor:
		dumpNewline(w, indent)
		fmt.Fprintf(w, "Name: #%d[%d]", p.Name.Table, p.Name.Entry)
		if name, ok := l.Name(p); ok {
			fmt.Fprintf(w, " %s", strconv.Quote(name))
		}
		for i, r := range p.Layouts {
			dumpNewline(w, indent)
			fmt.Fprintf(w, "Layout %d: ", i+1)
			dumpRef(w, l, r)
		}
	case *Compressed:
		dumpNewline(w, indent)
		w.WriteString("Inner: ")
		dumpKind(w, p.InnerKind())
		w.WriteString(" {")
		dumpPayload(w, indent+1, l, p.Inner)
		dumpNewline(w, indent)
		w.WriteByte('}')
	case *Opaque:
		dumpNewline(w, indent)
		w.WriteString("<unknown chunk kind>")
		dumpNewline(w, indent)
		w.WriteString("Bytes: ")
		dumpBytes(w, indent, p.Bytes)
	}
}

func dumpRef(w *bufio.Writer, l *Level, r ChunkRef) {
	if !r.Valid() {
		w.WriteString("none")
		return
	}
	fmt.Fprintf(w, "#%d", r)
	if d, ok := l.Descriptor(int(r)); ok {
		fmt.Fprintf(w, " (%s)", d.Kind)
	} else {
		w.WriteString(" (missing)")
	}
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpKind(w *bufio.Writer, k Kind) {
	w.WriteString(k.String())
	fmt.Fprintf(w, " (% 02X)", k.Code())
}

func dumpBytes(w *bufio.Writer, indent int, b []byte) {
	fmt.Fprintf(w, "(len:%d)", len(b))
	const width = 16
	for j := 0; j < len(b); j += width {
		dumpNewline(w, indent+1)
		w.WriteString("| ")
		for i := j; i < j+width; {
			if i < len(b) {
				fmt.Fprintf(w, "%02x", b[i])
			} else if len(b) < width {
				break
			} else {
				w.WriteString("  ")
			}
			i++
			if i%8 == 0 && i < j+width {
				w.WriteString("  ")
			} else {
				w.WriteString(" ")
			}
		}
		w.WriteString("|")
		n := len(b)
		if j+width < n {
			n = j + width
		}
		for i := j; i < n; i++ {
			if 32 <= b[i] && b[i] <= 126 {
				w.WriteByte(b[i])
			} else {
				w.WriteByte('.')
			}
		}
		w.WriteByte('|')
	}
}
