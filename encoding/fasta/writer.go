package fasta

import "io"

// LineWidth is the default number of sequence characters per output line.
const LineWidth = 80

var newline = []byte{'\n'}

// WrapSequence splits seq into lines of width characters. The last line may
// be shorter. An empty sequence yields no lines. Width must be positive.
func WrapSequence(seq string, width int) []string {
	if width <= 0 {
		panic(width)
	}
	lines := make([]string, 0, (len(seq)+width-1)/width)
	for len(seq) > width {
		lines = append(lines, seq[:width])
		seq = seq[width:]
	}
	if len(seq) > 0 {
		lines = append(lines, seq)
	}
	return lines
}

// Writer is a FASTA file writer.
type Writer struct {
	w     io.Writer
	width int
	err   error
}

// NewWriter constructs a new FASTA writer that writes entries to w, wrapping
// sequences at width characters per line. If width <= 0, LineWidth is used.
func NewWriter(w io.Writer, width int) *Writer {
	if width <= 0 {
		width = LineWidth
	}
	return &Writer{w: w, width: width}
}

// Write writes e in FASTA format, terminating every line with a newline.
// An error is returned if the write failed; once a write fails, all
// subsequent writes fail with the same error.
func (w *Writer) Write(e Entry) error {
	w.writeln(e.Header())
	for _, line := range WrapSequence(e.Sequence, w.width) {
		w.writeln(line)
	}
	return w.err
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
