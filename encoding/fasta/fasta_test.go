package fasta_test

import (
	"strings"
	"testing"

	"github.com/grailbio/fastaidx/encoding/fasta"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

const validHeader = ">gi|355477125|ref|NW_001493874.3| Bos taurus breed Hereford chromosome 1 genomic scaffold, alternate assembly Btau_4.6.1 Chr1.scaffold45"

const firstSequence = "" +
	"CCTTTTTGGGCGTGGAAAGATGGCGGTAAAAGCCACAATGCGCAGGCGTCATCGCTCACTTCTCCCCTCCCGGCTTCTGC" +
	"TCCACCTGACGCCTGCGCAGTAAGTAAGCCTGCCAGACACGCTGTGGCGGCTGCCTGAAGCTAGTGAGTCGCGGCGCCGC" +
	"GCACTTGTGGTTGGGTCAGTGCCGCGCGCCGCTCGGTCGTTACCGCGAGGCGCTGGTGGCCTTCAGGCTGGACGGCGCGG" +
	"GTCAGCCCTGGTTTGCCGGCTTCTGGGTCTTTGAACAGCCGCGATGTCGATCTTCACCCCCACCAACCAGATCCGCCTAA" +
	"CCAATGTGGCCGTGGTACGGATGAAGCGCGCCAGGAAGCGCTTCGAAATCGCCTGCTACAGAAACAAGGTCGTCGGCTGG" +
	"CGGAGCGGCTTGGAAAAAGACCTTGATGAAGTTCTGCAGACCCACTCAGTGTTTGTAAATGTTTCCTAAGGTCAGGTTGC" +
	"CAAGAAGGAAGATCTCATCAGTGCGTTTGGAACAGATGACCAAACTGAAATCTATTTTGACTAAAGGAGAAGTTCAAGTA" +
	"TCAGATAAAGACACACACAACTGGAGCAGATGTTTAGGGACATTGCAATTATTGTGGCAGACAAATGTGTGACTCCTGAA" +
	"ACAAAGAGACCATACACCGTGATCCTTATTGAGAGAGCCATGAAGGACATCCACTATTTGGTGAAAACCAACAGGAGTAC" +
	"AAAACAGCAGGCTTTGGAAGTGATAAAGCAGTTAAAAGAGAAAATGAAGATAGAACGTGCTCACATGAGGCTTCAGTTCA" +
	"TCCTTCCAGTGAATGAAGGCAAGAAGCTGAAAGAAAAGCTCAAGCCACTGATCAAGGTCATAGAAAGTAAAGATTATGGC" +
	"CAACAGTTAGAAATCGTAAGAGTCAAATATTTTCTTTGCTTCATGTTACCTAAATATTGTATTCTCTAGTAATAAATTTG" +
	"TAGCAAACATTCAAAAAAAAAAAAAAAAAAAA"

func TestParseHeader(t *testing.T) {
	e, ok, err := fasta.ParseHeader(validHeader)
	assert.NoError(t, err)
	assert.True(t, ok)
	expect.EQ(t, e.GI, uint64(355477125))
	expect.EQ(t, e.IDTag, "gi")
	expect.EQ(t, e.AccessionTag, "ref")
	expect.EQ(t, e.Accession, "NW_001493874.3")
	expect.EQ(t, e.Description, " Bos taurus breed Hereford chromosome 1 genomic scaffold, alternate assembly Btau_4.6.1 Chr1.scaffold45")
	expect.EQ(t, e.Sequence, "")
	expect.EQ(t, e.Pos, fasta.NoPos)
}

func TestParseHeaderNotHeader(t *testing.T) {
	for _, line := range []string{"", "foobar", "ACGT", " >gi|1|ref|A|x"} {
		_, ok, err := fasta.ParseHeader(line)
		expect.NoError(t, err, line)
		expect.False(t, ok, line)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		line string
		err  error
	}{
		{">", fasta.ErrMalformedHeader},
		{">gi|1|ref|A", fasta.ErrMalformedHeader},
		{">chr1 a viral sequence", fasta.ErrMalformedHeader},
		{">gi|x|ref|A|desc", fasta.ErrMalformedIdentifier},
		{">gi|-1|ref|A|desc", fasta.ErrMalformedIdentifier},
		{">gi||ref|A|desc", fasta.ErrMalformedIdentifier},
		{">gi|18446744073709551616|ref|A|desc", fasta.ErrMalformedIdentifier},
	}
	for _, tt := range tests {
		_, ok, err := fasta.ParseHeader(tt.line)
		expect.True(t, ok, tt.line)
		expect.EQ(t, errors.Cause(err), tt.err, tt.line)
	}
}

func TestParseHeaderDescriptionWithBars(t *testing.T) {
	e, _, err := fasta.ParseHeader(">lcl|18446744073709551615|emb|X1.1|  left | right |")
	assert.NoError(t, err)
	expect.EQ(t, e.GI, uint64(18446744073709551615))
	expect.EQ(t, e.IDTag, "lcl")
	expect.EQ(t, e.AccessionTag, "emb")
	expect.EQ(t, e.Description, "  left | right |")
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, line := range []string{
		validHeader,
		">gi|0|ref||",
		">lcl|42|emb|X1.1|a|b|c",
		">gi|197313646|ref|NR_001588.2|\tTabbed description  ",
	} {
		e, ok, err := fasta.ParseHeader(line)
		assert.NoError(t, err)
		assert.True(t, ok)
		expect.EQ(t, e.Header(), line)

		again, _, err := fasta.ParseHeader(e.Header())
		assert.NoError(t, err)
		expect.EQ(t, again, e)
	}
}

func TestHeaderDefaultTags(t *testing.T) {
	e := fasta.Entry{GI: 7, Accession: "NM_1", Description: " x"}
	expect.EQ(t, e.Header(), ">gi|7|ref|NM_1| x")
}

func TestEntryString(t *testing.T) {
	e := fasta.Entry{
		GI:          197313646,
		Accession:   "NR_001588.2",
		Description: " Homo sapiens SBDSP1",
		Sequence:    firstSequence,
	}
	lines := strings.Split(e.String(), "\n")
	assert.EQ(t, lines[0], ">gi|197313646|ref|NR_001588.2| Homo sapiens SBDSP1")
	assert.EQ(t, len(lines), 1+(len(firstSequence)+79)/80)
	for _, line := range lines[1 : len(lines)-1] {
		expect.EQ(t, len(line), 80)
	}
	expect.EQ(t, strings.Join(lines[1:], ""), firstSequence)

	e.Sequence = ""
	expect.EQ(t, e.String(), ">gi|197313646|ref|NR_001588.2| Homo sapiens SBDSP1")
}
