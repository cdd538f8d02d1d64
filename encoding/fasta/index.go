package fasta

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"

	"blainsmith.com/go/seahash"
	gerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
)

// Index files are a fixed 40-byte header, one little-endian uint64 offset per
// entry, and a seahash checksum of everything before it:
//
//   magic    [8]byte
//   count    uint64
//   size     int64   source file size
//   mtime    int64   source modification time, unix nanoseconds
//   head     uint64  highwayhash of the first headBytes of the source
//   offsets  [count]uint64
//   checksum uint64
var indexMagic = [8]byte{'F', 'A', 'S', 'I', 'D', 'X', 0, 1}

const (
	indexHeaderSize = 40
	offsetWidth     = 8
	checksumWidth   = 8

	// headBytes is the length of the source prefix hashed into a Fingerprint.
	headBytes = 64 * 1024

	// IndexSuffix is appended to a FASTA path to form its default index path.
	IndexSuffix = ".idx"
)

// headKey is the highwayhash key for Fingerprint.Head. Changing it
// invalidates every existing index.
var headKey = []byte("grailbio/fastaidx fingerprint 01")

// Fingerprint identifies the contents of a source file cheaply enough to be
// checked every time an index is loaded.
type Fingerprint struct {
	Size    int64
	ModTime int64
	Head    uint64
}

// Index lists the byte offset of every entry in a FASTA file. Offsets[i-1] is
// the offset of the header line of entry i.
type Index struct {
	Source  Fingerprint
	Offsets []int64
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return len(idx.Offsets)
}

// Span returns the byte range [start, limit) occupied by entries start
// through stop (1-based, inclusive). A limit of 0 means the range extends to
// the end of the file. The caller must check the bounds.
func (idx *Index) Span(start, stop int) (off, limit int64) {
	off = idx.Offsets[start-1]
	if stop < len(idx.Offsets) {
		limit = idx.Offsets[stop]
	}
	return
}

// EncodeIndex writes idx to w in the binary index format.
func EncodeIndex(w io.Writer, idx Index) error {
	h := seahash.New()
	mw := io.MultiWriter(w, h)
	buf := make([]byte, indexHeaderSize)
	copy(buf, indexMagic[:])
	binary.LittleEndian.PutUint64(buf[8:], uint64(len(idx.Offsets)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(idx.Source.Size))
	binary.LittleEndian.PutUint64(buf[24:], uint64(idx.Source.ModTime))
	binary.LittleEndian.PutUint64(buf[32:], idx.Source.Head)
	if _, err := mw.Write(buf); err != nil {
		return err
	}
	var b [offsetWidth]byte
	for _, off := range idx.Offsets {
		binary.LittleEndian.PutUint64(b[:], uint64(off))
		if _, err := mw.Write(b[:]); err != nil {
			return err
		}
	}
	binary.LittleEndian.PutUint64(b[:], h.Sum64())
	_, err := w.Write(b[:])
	return err
}

// DecodeIndex reads an index written by EncodeIndex. Any deviation from the
// format, including truncation, yields an error whose cause is
// ErrIndexUnreadable.
func DecodeIndex(r io.Reader) (Index, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return Index{}, err
	}
	if len(data) < indexHeaderSize+checksumWidth {
		return Index{}, errors.Wrapf(ErrIndexUnreadable, "index is %d bytes", len(data))
	}
	if !bytes.Equal(data[:len(indexMagic)], indexMagic[:]) {
		return Index{}, errors.Wrapf(ErrIndexUnreadable, "wrong magic %q", data[:len(indexMagic)])
	}
	count := binary.LittleEndian.Uint64(data[8:])
	body := uint64(len(data) - indexHeaderSize - checksumWidth)
	if body%offsetWidth != 0 || count != body/offsetWidth {
		return Index{}, errors.Wrapf(ErrIndexUnreadable, "header says %d entries, file holds %d bytes of offsets", count, body)
	}
	payload := data[:len(data)-checksumWidth]
	want := binary.LittleEndian.Uint64(data[len(payload):])
	if got := seahash.Sum64(payload); got != want {
		return Index{}, errors.Wrapf(ErrIndexUnreadable, "checksum mismatch: %x != %x", got, want)
	}
	idx := Index{
		Source: Fingerprint{
			Size:    int64(binary.LittleEndian.Uint64(data[16:])),
			ModTime: int64(binary.LittleEndian.Uint64(data[24:])),
			Head:    binary.LittleEndian.Uint64(data[32:]),
		},
		Offsets: make([]int64, count),
	}
	prev := int64(-1)
	for i := range idx.Offsets {
		off := int64(binary.LittleEndian.Uint64(data[indexHeaderSize+i*offsetWidth:]))
		if off <= prev {
			return Index{}, errors.Wrapf(ErrIndexUnreadable, "offset %d of entry %d does not follow %d", off, i+1, prev)
		}
		idx.Offsets[i] = off
		prev = off
	}
	return idx, nil
}

// ReadIndex reads the index stored at path.
func ReadIndex(ctx context.Context, path string) (idx Index, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return idx, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	idx, err = DecodeIndex(in.Reader(ctx))
	if err != nil {
		err = errors.Wrap(err, path)
	}
	return
}

// WriteIndex stores idx at path. The file only replaces any existing index
// once it has been completely written, so readers observe either the previous
// index or the new one.
func WriteIndex(ctx context.Context, path string, idx Index) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return gerrors.E(err, "create index", path)
	}
	w := bufio.NewWriter(out.Writer(ctx))
	if err = EncodeIndex(w, idx); err == nil {
		err = w.Flush()
	}
	if err != nil {
		out.Discard(ctx)
		return gerrors.E(err, "write index", path)
	}
	if err = out.Close(ctx); err != nil {
		return gerrors.E(err, "close index", path)
	}
	return nil
}

// ComputeFingerprint returns the fingerprint of the file at path.
func ComputeFingerprint(ctx context.Context, path string) (fp Fingerprint, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return fp, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	info, err := in.Stat(ctx)
	if err != nil {
		return fp, err
	}
	head := make([]byte, headBytes)
	n, err := io.ReadFull(in.Reader(ctx), head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fp, err
	}
	return Fingerprint{
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		Head:    highwayhash.Sum64(head[:n], headKey),
	}, nil
}

// WriteIndexTSV writes idx as tab-separated "entry offset" rows, one per
// entry, numbering entries from 1.
func WriteIndexTSV(w io.Writer, idx Index) error {
	out := tsv.NewWriter(w)
	for i, off := range idx.Offsets {
		out.WriteInt64(int64(i + 1))
		out.WriteInt64(off)
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
