package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const readBufferSize = 64 * 1024

var errEOF = errors.New("eof")

// ScannerOpts controls which part of the input a Scanner reads. The zero
// value scans every entry of an input that starts at the beginning of a file.
type ScannerOpts struct {
	// Offset is the position of the reader's first byte in the source file.
	// Entry.Pos values are reported relative to the source file.
	Offset int64
	// Stop, if positive, is the source offset at which scanning ends. Lines
	// that start at or after Stop are not read.
	Stop int64
	// Skip is the number of leading entries that are parsed and dropped. The
	// sequences of skipped entries are not accumulated.
	Skip int
	// Limit, if positive, is the maximum number of entries returned.
	Limit int
	// HeadersOnly causes entries to be returned with empty sequences. Headers
	// are still validated and sequence lines are still checked for placement.
	HeadersOnly bool
	// Resync makes the scanner skip sequence lines that precede the first
	// header instead of failing with ErrSequenceBeforeHeader. It is used when
	// scanning from an arbitrary offset.
	Resync bool
	// PartialLine causes the first line to be discarded because the reader
	// starts in the middle of it.
	PartialLine bool
}

// Scanner reads FASTA entries one at a time. Scan returns false once the
// input is exhausted or an error occurs; Err distinguishes the two cases.
// Scanners are not threadsafe.
//
//   sc := fasta.NewScanner(r, fasta.ScannerOpts{})
//   for sc.Scan() {
//     e := sc.Entry()
//     ...
//   }
//   if err := sc.Err(); err != nil {
//     ...
//   }
type Scanner struct {
	r      *bufio.Reader
	closer func() error
	opts   ScannerOpts

	pos         int64 // source offset of the next unread byte
	eof         bool
	discardLine bool
	b           entryBuilder
	skipped     int
	returned    int
	sawHeader   bool
	// indexed is set when Offset came from an index, so that input which does
	// not start with a header there is reported as ErrStaleIndex.
	indexed bool

	entry Entry
	err   error
}

// NewScanner creates a Scanner that reads raw FASTA data from r.
func NewScanner(r io.Reader, opts ScannerOpts) *Scanner {
	return newScanner(r, nil, opts)
}

func newScanner(r io.Reader, closer func() error, opts ScannerOpts) *Scanner {
	return &Scanner{
		r:           bufio.NewReaderSize(r, readBufferSize),
		closer:      closer,
		opts:        opts,
		pos:         opts.Offset,
		discardLine: opts.PartialLine,
	}
}

// newErrScanner returns a Scanner that yields nothing. If err is nil, the
// scanner represents an empty traversal.
func newErrScanner(err error) *Scanner {
	if err == nil {
		err = errEOF
	}
	return &Scanner{err: err}
}

// Scan reads the next entry. It returns false when there are no more entries
// or when an error occurred. Once Scan returns false it never returns true
// again, and the underlying file, if any, has been closed.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if s.opts.Limit > 0 && s.returned >= s.opts.Limit {
		s.finish(errEOF)
		return false
	}
	for {
		e, ok := s.next()
		if !ok {
			return false
		}
		if s.skipped < s.opts.Skip {
			s.skipped++
			continue
		}
		s.entry = e
		s.returned++
		return true
	}
}

// Entry returns the entry read by the last successful call to Scan.
func (s *Scanner) Entry() Entry {
	return s.entry
}

// Err returns the error that stopped the scan, if any. It returns nil if the
// scan reached the end of its input.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}

// Close releases the underlying file. It is safe to call Close more than
// once, and it must be called when a scan is abandoned before Scan returns
// false.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c()
}

func (s *Scanner) finish(err error) {
	s.err = err
	if e := s.Close(); e != nil && s.err == errEOF {
		s.err = e
	}
}

// next returns the next complete entry in the input.
func (s *Scanner) next() (Entry, bool) {
	for !s.eof {
		lineStart := s.pos
		line, err := s.r.ReadString('\n')
		if err == io.EOF {
			s.eof = true
			if len(line) == 0 {
				break
			}
		} else if err != nil {
			s.finish(errors.Wrapf(err, "reading FASTA at offset %d", lineStart))
			return Entry{}, false
		}
		if s.opts.Stop > 0 && lineStart >= s.opts.Stop {
			s.eof = true
			break
		}
		s.pos += int64(len(line))
		line = trimTerminator(line)
		if s.discardLine {
			s.discardLine = false
			continue
		}

		header, ok, err := ParseHeader(line)
		if err != nil {
			s.finish(errors.Wrapf(err, "offset %d", lineStart))
			return Entry{}, false
		}
		if ok {
			if s.indexed && !s.sawHeader && lineStart != s.opts.Offset {
				s.finish(errors.Wrapf(ErrStaleIndex, "no header at offset %d", s.opts.Offset))
				return Entry{}, false
			}
			s.sawHeader = true
			header.Pos = lineStart
			if s.b.open {
				prev := s.b.finish()
				s.b.start(header)
				return prev, true
			}
			s.b.start(header)
			continue
		}
		if !s.b.open {
			if s.opts.Resync {
				continue
			}
			if s.indexed {
				s.finish(errors.Wrapf(ErrStaleIndex, "no header at offset %d", lineStart))
				return Entry{}, false
			}
			s.finish(errors.Wrapf(ErrSequenceBeforeHeader, "offset %d", lineStart))
			return Entry{}, false
		}
		if s.opts.HeadersOnly || s.skipped < s.opts.Skip {
			continue
		}
		s.b.append(line)
	}
	if s.b.open {
		return s.b.finish(), true
	}
	if s.indexed && !s.sawHeader {
		s.finish(errors.Wrapf(ErrStaleIndex, "no header at offset %d", s.opts.Offset))
		return Entry{}, false
	}
	s.finish(errEOF)
	return Entry{}, false
}

// trimTerminator removes a trailing "\n" or "\r\n".
func trimTerminator(line string) string {
	if strings.HasSuffix(line, "\n") {
		line = line[:len(line)-1]
		if strings.HasSuffix(line, "\r") {
			line = line[:len(line)-1]
		}
	}
	return line
}
