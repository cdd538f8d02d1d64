// Package fasta contains code for parsing NCBI-style FASTA files and for
// random access to their entries through an optional on-disk position index.
// Each entry begins with a five-field header line followed by any number of
// sequence lines. For example:
//
// >gi|197313646|ref|NR_001588.2| Homo sapiens SBDSP1, non-coding RNA
// CCTTTTTGGGCGTGGAAAGATGGCGG
// TAAAAGCCACAATGCGCAGG
// >gi|32452934|ref|NM_178428.1| Homo sapiens FLJ25218, mRNA
// CCGTAGGGGC
//
// The header fields are a tag, a numeric identifier, a second tag, an
// accession and a free-text description. The description is everything after
// the fourth '|' and may itself contain '|'.
package fasta

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfBounds is returned when an entry number is smaller than 1 or
	// larger than the number of entries in the file.
	ErrOutOfBounds = errors.New("entry number out of bounds")
	// ErrMalformedHeader is returned when a line starts with '>' but does not
	// have five '|'-separated fields.
	ErrMalformedHeader = errors.New("malformed FASTA header")
	// ErrMalformedIdentifier is returned when the identifier field of a header
	// is not a non-negative integer.
	ErrMalformedIdentifier = errors.New("malformed FASTA identifier")
	// ErrSequenceBeforeHeader is returned when sequence data appears before
	// the first header line.
	ErrSequenceBeforeHeader = errors.New("sequence data before first FASTA header")
	// ErrIndexUnreadable is returned when an index file exists but cannot be
	// decoded.
	ErrIndexUnreadable = errors.New("unreadable FASTA index")
	// ErrStaleIndex is returned when an indexed offset no longer points at a
	// header line of the source file.
	ErrStaleIndex = errors.New("stale FASTA index")
)

const (
	// NoPos is the value of Entry.Pos when the entry's position in the file is
	// not known.
	NoPos = int64(-1)

	defaultIDTag        = "gi"
	defaultAccessionTag = "ref"
	headerFields        = 5
)

// Entry is a single FASTA record. Entries returned by a Scanner or a Parser
// are owned by the caller.
type Entry struct {
	IDTag        string
	GI           uint64
	AccessionTag string
	Accession    string
	Description  string
	Sequence     string
	// Pos is the byte offset of the header line in the source, or NoPos.
	Pos int64
}

// Header returns the entry's header line, including the leading '>' and
// excluding the line terminator.
func (e Entry) Header() string {
	idTag, accTag := e.IDTag, e.AccessionTag
	if idTag == "" {
		idTag = defaultIDTag
	}
	if accTag == "" {
		accTag = defaultAccessionTag
	}
	return ">" + strings.Join([]string{
		idTag,
		strconv.FormatUint(e.GI, 10),
		accTag,
		e.Accession,
		e.Description,
	}, "|")
}

// String renders the entry as FASTA text with the sequence wrapped at
// LineWidth columns. The result has no trailing newline.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Header())
	for _, line := range WrapSequence(e.Sequence, LineWidth) {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}

// ParseHeader attempts to parse line as a FASTA header. It returns false if
// the line is not a header at all, i.e. it is empty or does not start with
// '>'. A line that starts with '>' but cannot be parsed yields an error. The
// line must not include its terminator.
func ParseHeader(line string) (Entry, bool, error) {
	if len(line) == 0 || line[0] != '>' {
		return Entry{}, false, nil
	}
	parts := strings.SplitN(line[1:], "|", headerFields)
	if len(parts) != headerFields {
		return Entry{}, true, errors.Wrapf(ErrMalformedHeader, "%d fields in %q", len(parts), line)
	}
	gi, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Entry{}, true, errors.Wrapf(ErrMalformedIdentifier, "%q", parts[1])
	}
	return Entry{
		IDTag:        parts[0],
		GI:           gi,
		AccessionTag: parts[2],
		Accession:    parts[3],
		Description:  parts[4],
		Pos:          NoPos,
	}, true, nil
}

// entryBuilder accumulates the sequence of the entry currently being parsed.
type entryBuilder struct {
	open  bool
	entry Entry
	seq   strings.Builder
}

func (b *entryBuilder) start(e Entry) {
	b.open = true
	b.entry = e
}

func (b *entryBuilder) append(line string) {
	b.seq.WriteString(line)
}

// finish closes the open entry and returns it.
func (b *entryBuilder) finish() Entry {
	e := b.entry
	e.Sequence = b.seq.String()
	b.open = false
	b.entry = Entry{}
	b.seq.Reset()
	return e
}
