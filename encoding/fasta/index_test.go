package fasta_test

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/fastaidx/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

var testIndex = fasta.Index{
	Source:  fasta.Fingerprint{Size: 2122, ModTime: 1234567890123456789, Head: 0xfeedface},
	Offsets: []int64{0, 1145, 1499, 1779, 1961},
}

func encode(t *testing.T, idx fasta.Index) []byte {
	var buf bytes.Buffer
	assert.NoError(t, fasta.EncodeIndex(&buf, idx))
	return buf.Bytes()
}

func TestIndexEncodeDecode(t *testing.T) {
	data := encode(t, testIndex)
	expect.EQ(t, len(data), 40+8*len(testIndex.Offsets)+8)
	idx, err := fasta.DecodeIndex(bytes.NewReader(data))
	assert.NoError(t, err)
	expect.EQ(t, idx, testIndex)

	empty := fasta.Index{Offsets: []int64{}}
	idx, err = fasta.DecodeIndex(bytes.NewReader(encode(t, empty)))
	assert.NoError(t, err)
	expect.EQ(t, idx.Len(), 0)
}

func TestIndexDecodeTruncated(t *testing.T) {
	data := encode(t, testIndex)
	for n := 0; n < len(data); n++ {
		_, err := fasta.DecodeIndex(bytes.NewReader(data[:n]))
		expect.EQ(t, errors.Cause(err), fasta.ErrIndexUnreadable, "length", n)
	}
	_, err := fasta.DecodeIndex(bytes.NewReader(append(append([]byte{}, data...), 0)))
	expect.EQ(t, errors.Cause(err), fasta.ErrIndexUnreadable)
}

func TestIndexDecodeCorrupt(t *testing.T) {
	data := encode(t, testIndex)
	for i := range data {
		corrupt := append([]byte{}, data...)
		corrupt[i] ^= 0x40
		_, err := fasta.DecodeIndex(bytes.NewReader(corrupt))
		expect.EQ(t, errors.Cause(err), fasta.ErrIndexUnreadable, "byte", i)
	}
}

func TestIndexDecodeUnordered(t *testing.T) {
	for _, offsets := range [][]int64{{0, 10, 10}, {5, 1}, {-1, 4}} {
		_, err := fasta.DecodeIndex(bytes.NewReader(encode(t, fasta.Index{Offsets: offsets})))
		expect.EQ(t, errors.Cause(err), fasta.ErrIndexUnreadable, offsets)
	}
}

func TestIndexSpan(t *testing.T) {
	tests := []struct {
		start, stop int
		off, limit  int64
	}{
		{1, 1, 0, 1145},
		{2, 4, 1145, 1961},
		{3, 5, 1499, 0},
		{5, 5, 1961, 0},
	}
	for _, tt := range tests {
		off, limit := testIndex.Span(tt.start, tt.stop)
		expect.EQ(t, off, tt.off)
		expect.EQ(t, limit, tt.limit)
	}
}

func TestWriteIndex(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "index")
	defer cleanup()
	path := filepath.Join(dir, "test.fna.idx")

	assert.NoError(t, fasta.WriteIndex(ctx, path, fasta.Index{Offsets: []int64{0, 1}}))
	assert.NoError(t, fasta.WriteIndex(ctx, path, testIndex))
	idx, err := fasta.ReadIndex(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, idx, testIndex)

	// Only the index itself remains.
	names, err := ioutil.ReadDir(dir)
	assert.NoError(t, err)
	assert.EQ(t, len(names), 1)
	expect.EQ(t, names[0].Name(), "test.fna.idx")

	// A failed write leaves the previous index in place.
	expect.NotNil(t, fasta.WriteIndex(ctx, filepath.Join(path, "x.idx"), testIndex))
	idx, err = fasta.ReadIndex(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, idx, testIndex)
}

func TestReadIndexTruncatedFile(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "index")
	defer cleanup()
	path := filepath.Join(dir, "test.fna.idx")
	data := encode(t, testIndex)
	assert.NoError(t, ioutil.WriteFile(path, data[:len(data)-3], 0644))
	_, err := fasta.ReadIndex(ctx, path)
	expect.EQ(t, errors.Cause(err), fasta.ErrIndexUnreadable)
}

func TestComputeFingerprint(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "index")
	defer cleanup()
	a := filepath.Join(dir, "a.fna")
	b := filepath.Join(dir, "b.fna")
	assert.NoError(t, ioutil.WriteFile(a, []byte(smallFasta), 0644))
	assert.NoError(t, ioutil.WriteFile(b, []byte(smallFasta), 0644))

	fa, err := fasta.ComputeFingerprint(ctx, a)
	assert.NoError(t, err)
	fb, err := fasta.ComputeFingerprint(ctx, b)
	assert.NoError(t, err)
	expect.EQ(t, fa.Size, int64(len(smallFasta)))
	expect.EQ(t, fa.Head, fb.Head)

	// Same size, different contents.
	assert.NoError(t, ioutil.WriteFile(b, bytes.Replace([]byte(smallFasta), []byte("ACGTA"), []byte("TTTTT"), 1), 0644))
	fb, err = fasta.ComputeFingerprint(ctx, b)
	assert.NoError(t, err)
	expect.EQ(t, fb.Size, fa.Size)
	expect.NEQ(t, fb.Head, fa.Head)
}

func TestWriteIndexTSV(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, fasta.WriteIndexTSV(&buf, testIndex))
	expect.EQ(t, buf.String(), "1\t0\n2\t1145\n3\t1499\n4\t1779\n5\t1961\n")
}
