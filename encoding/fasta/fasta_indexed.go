package fasta

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// ParserOpts configures a Parser. The zero value is valid.
type ParserOpts struct {
	// IndexPath is the location of the index file. If empty, it is the FASTA
	// path with IndexSuffix appended.
	IndexPath string
	// NoIndex prevents Open from loading an existing index.
	NoIndex bool
	// LineWidth is the sequence line width used by writers created with
	// Parser.NewWriter. If zero, LineWidth is used.
	LineWidth int
	// Log receives the parser's diagnostic messages. If nil, messages go to
	// the process-wide logger.
	Log log.Outputter
}

// Parser provides sequential and random access to the entries of a FASTA
// file. Every traversal opens its own handle to the file, so a Parser may be
// shared by multiple goroutines; the loaded index is shared between them.
// Building or clearing the index concurrently with other calls is not
// supported for the same index path.
type Parser struct {
	path      string
	indexPath string
	width     int
	out       log.Outputter

	mu    sync.Mutex
	index *Index
}

// Open creates a Parser for the FASTA file at path and loads its index, if
// one exists. A missing index is not an error; an index that cannot be
// decoded is.
func Open(ctx context.Context, path string, opts ParserOpts) (*Parser, error) {
	p := &Parser{
		path:      path,
		indexPath: opts.IndexPath,
		width:     opts.LineWidth,
		out:       opts.Log,
	}
	if p.width <= 0 {
		p.width = LineWidth
	}
	if p.indexPath == "" {
		p.indexPath = path + IndexSuffix
	}
	if !opts.NoIndex {
		if err := p.LoadIndex(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Path returns the path of the FASTA file.
func (p *Parser) Path() string { return p.path }

// IndexPath returns the path of the index file.
func (p *Parser) IndexPath() string { return p.indexPath }

// NewWriter returns a Writer that formats entries with the parser's line
// width.
func (p *Parser) NewWriter(w io.Writer) *Writer {
	return NewWriter(w, p.width)
}

// Indexed reports whether an index is loaded.
func (p *Parser) Indexed() bool {
	return p.getIndex() != nil
}

// Index returns a copy of the loaded index, and false if no index is loaded.
func (p *Parser) Index() (Index, bool) {
	idx := p.getIndex()
	if idx == nil {
		return Index{}, false
	}
	c := *idx
	c.Offsets = append([]int64(nil), idx.Offsets...)
	return c, true
}

func (p *Parser) getIndex() *Index {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

func (p *Parser) setIndex(idx *Index) {
	p.mu.Lock()
	p.index = idx
	p.mu.Unlock()
}

func (p *Parser) logf(level log.Level, format string, args ...interface{}) {
	if p.out == nil {
		level.Printf(format, args...)
		return
	}
	if level > p.out.Level() {
		return
	}
	_ = p.out.Output(2, level, fmt.Sprintf(format, args...))
}

// LoadIndex reads the index file. If the file does not exist, or if it was
// built from a different version of the FASTA file, the parser drops any
// loaded index and continues without one. An index file that exists but
// cannot be decoded yields an error whose cause is ErrIndexUnreadable.
func (p *Parser) LoadIndex(ctx context.Context) error {
	if _, err := file.Stat(ctx, p.indexPath); err != nil {
		if !isNotExist(err) {
			return gerrors.E(err, "stat index", p.indexPath)
		}
		p.logf(log.Info, "couldn't load index at %s, proceeding without index for %s", p.indexPath, p.path)
		p.setIndex(nil)
		return nil
	}
	idx, err := ReadIndex(ctx, p.indexPath)
	if err != nil {
		return err
	}
	fp, err := ComputeFingerprint(ctx, p.path)
	if err != nil {
		return gerrors.E(err, "fingerprint", p.path)
	}
	if fp != idx.Source {
		p.logf(log.Info, "index at %s was built for a different version of %s, proceeding without index", p.indexPath, p.path)
		p.setIndex(nil)
		return nil
	}
	p.logf(log.Debug, "loaded index of %d entries for %s", idx.Len(), p.path)
	p.setIndex(&idx)
	return nil
}

// BuildIndex scans the whole FASTA file and replaces the in-memory index
// with the positions found. The index is not written to disk; see
// PersistIndex and SaveIndex.
func (p *Parser) BuildIndex(ctx context.Context) error {
	fp, err := ComputeFingerprint(ctx, p.path)
	if err != nil {
		return gerrors.E(err, "fingerprint", p.path)
	}
	idx := Index{Source: fp, Offsets: []int64{}}
	sc := p.open(ctx, ScannerOpts{HeadersOnly: true}, false)
	for sc.Scan() {
		idx.Offsets = append(idx.Offsets, sc.Entry().Pos)
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "indexing %s", p.path)
	}
	p.logf(log.Debug, "indexed %d entries in %s", idx.Len(), p.path)
	p.setIndex(&idx)
	return nil
}

// PersistIndex writes the in-memory index to the index path, atomically
// replacing any existing index file.
func (p *Parser) PersistIndex(ctx context.Context) error {
	idx := p.getIndex()
	if idx == nil {
		return errors.Errorf("%s: no index has been built", p.path)
	}
	return WriteIndex(ctx, p.indexPath, *idx)
}

// SaveIndex builds the index and writes it to the index path.
func (p *Parser) SaveIndex(ctx context.Context) error {
	if err := p.BuildIndex(ctx); err != nil {
		return err
	}
	p.logf(log.Info, "saving index for %s", p.path)
	return p.PersistIndex(ctx)
}

// ClearIndex removes the index file and then drops the loaded index.
// Subsequent lookups scan the FASTA file. It is not an error if no index file
// exists. If the file cannot be removed, the loaded index is kept.
func (p *Parser) ClearIndex(ctx context.Context) error {
	if err := file.Remove(ctx, p.indexPath); err != nil && !isNotExist(err) {
		return gerrors.E(err, "remove index", p.indexPath)
	}
	p.setIndex(nil)
	return nil
}

// Entries returns a Scanner over the entries of the file, starting with the
// first complete header line at or after byte offset off. A negative off is
// treated as 0. Each call opens the file anew. The caller must Close the
// scanner if it stops before Scan returns false.
func (p *Parser) Entries(ctx context.Context, off int64) *Scanner {
	if off < 0 {
		off = 0
	}
	return p.open(ctx, ScannerOpts{Offset: off}, true)
}

// Entry returns entry i, numbering from 1. It fails with ErrOutOfBounds if i
// is less than 1 or greater than the number of entries. With an index this
// reads only entry i; otherwise it scans entries 1 through i.
func (p *Parser) Entry(ctx context.Context, i int) (e Entry, err error) {
	if i < 1 {
		return e, errors.Wrapf(ErrOutOfBounds, "entry %d", i)
	}
	var (
		idx = p.getIndex()
		sc  *Scanner
	)
	if idx != nil {
		if i > idx.Len() {
			return e, errors.Wrapf(ErrOutOfBounds, "entry %d of %d", i, idx.Len())
		}
		sc = p.openIndexed(ctx, ScannerOpts{Offset: idx.Offsets[i-1], Limit: 1})
	} else {
		sc = p.open(ctx, ScannerOpts{Skip: i - 1, Limit: 1}, false)
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if sc.Scan() {
		return sc.Entry(), nil
	}
	if err = sc.Err(); err == nil && idx == nil {
		err = errors.Wrapf(ErrOutOfBounds, "entry %d", i)
	}
	return e, err
}

// First returns the first entry in the file.
func (p *Parser) First(ctx context.Context) (Entry, error) {
	return p.Entry(ctx, 1)
}

// Last returns the last entry in the file. Without an index, this scans the
// file twice.
func (p *Parser) Last(ctx context.Context) (Entry, error) {
	n, err := p.Count(ctx)
	if err != nil {
		return Entry{}, err
	}
	return p.Entry(ctx, n)
}

// Range returns a Scanner over entries start through stop, inclusive and
// numbering from 1. Unlike Entry, Range clamps the request to the entries
// that exist: start is raised to 1 and stop is lowered to the entry count,
// and an empty range yields a scanner with no entries. With an index the
// entries are read from a single contiguous region of the file. The caller
// must Close the scanner if it stops before Scan returns false.
func (p *Parser) Range(ctx context.Context, start, stop int) *Scanner {
	if start < 1 {
		start = 1
	}
	idx := p.getIndex()
	if idx != nil && stop > idx.Len() {
		stop = idx.Len()
	}
	if start > stop {
		return newErrScanner(nil)
	}
	if idx != nil {
		off, limit := idx.Span(start, stop)
		return p.openIndexed(ctx, ScannerOpts{Offset: off, Stop: limit})
	}
	return p.open(ctx, ScannerOpts{Skip: start - 1, Limit: stop - start + 1}, false)
}

// Count returns the number of entries in the file. With an index loaded this
// is constant time; without one, Count scans the entire file.
func (p *Parser) Count(ctx context.Context) (int, error) {
	if idx := p.getIndex(); idx != nil {
		return idx.Len(), nil
	}
	sc := p.open(ctx, ScannerOpts{HeadersOnly: true}, false)
	n := 0
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// openIndexed starts a traversal at an offset taken from the index. Input
// that does not start with a header at that offset yields ErrStaleIndex.
func (p *Parser) openIndexed(ctx context.Context, opts ScannerOpts) *Scanner {
	sc := p.open(ctx, opts, false)
	sc.indexed = true
	return sc
}

// open starts a traversal of the file at opts.Offset. If resync is set and
// the offset is not at the start of a line, the traversal begins at the next
// header line; otherwise the offset must point at a header line.
func (p *Parser) open(ctx context.Context, opts ScannerOpts, resync bool) *Scanner {
	in, err := file.Open(ctx, p.path)
	if err != nil {
		return newErrScanner(gerrors.E(err, "open", p.path))
	}
	closer := func() error { return in.Close(ctx) }
	r := in.Reader(ctx)
	if opts.Offset > 0 {
		seekTo := opts.Offset
		if resync {
			seekTo--
		}
		if _, err := r.Seek(seekTo, io.SeekStart); err != nil {
			_ = closer()
			return newErrScanner(gerrors.E(err, "seek", p.path))
		}
		if resync {
			var b [1]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				_ = closer()
				if err == io.EOF {
					return newErrScanner(nil)
				}
				return newErrScanner(gerrors.E(err, "read", p.path))
			}
			opts.Resync = true
			opts.PartialLine = b[0] != '\n'
		}
	}
	return newScanner(r, closer, opts)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || gerrors.Is(gerrors.NotExist, err)
}
