package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fastaidx/encoding/fasta"
)

func count(ctx context.Context, out io.Writer, path string, opts fasta.ParserOpts) error {
	p, err := fasta.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	n, err := p.Count(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, n)
	return err
}

func get(ctx context.Context, out io.Writer, path string, opts fasta.ParserOpts, nums []int) error {
	p, err := fasta.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	w := p.NewWriter(bw)
	e := errors.Once{}
	for _, i := range nums {
		entry, err := p.Entry(ctx, i)
		if err != nil {
			e.Set(err)
			break
		}
		if err := w.Write(entry); err != nil {
			e.Set(err)
			break
		}
	}
	e.Set(bw.Flush())
	return e.Err()
}

func firstOrLast(ctx context.Context, out io.Writer, path string, opts fasta.ParserOpts, last bool) error {
	p, err := fasta.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	var e fasta.Entry
	if last {
		e, err = p.Last(ctx)
	} else {
		e, err = p.First(ctx)
	}
	if err != nil {
		return err
	}
	return p.NewWriter(out).Write(e)
}

func printRange(ctx context.Context, out io.Writer, path string, opts fasta.ParserOpts, start, stop int) error {
	p, err := fasta.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	w := p.NewWriter(bw)
	sc := p.Range(ctx, start, stop)
	e := errors.Once{}
	for sc.Scan() {
		if err := w.Write(sc.Entry()); err != nil {
			e.Set(err)
			break
		}
	}
	e.Set(sc.Err())
	e.Set(sc.Close())
	e.Set(bw.Flush())
	return e.Err()
}

func index(ctx context.Context, path string, opts fasta.ParserOpts) error {
	opts.NoIndex = true
	p, err := fasta.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	return p.SaveIndex(ctx)
}

func unindex(ctx context.Context, path string, opts fasta.ParserOpts) error {
	opts.NoIndex = true
	p, err := fasta.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	return p.ClearIndex(ctx)
}

func dumpIndex(ctx context.Context, out io.Writer, path string, opts fasta.ParserOpts) error {
	if opts.NoIndex {
		return fmt.Errorf("dumpindex cannot be used with -no-index")
	}
	p, err := fasta.Open(ctx, path, opts)
	if err != nil {
		return err
	}
	idx, ok := p.Index()
	if !ok {
		return fmt.Errorf("%s: no usable index at %s", path, p.IndexPath())
	}
	return fasta.WriteIndexTSV(out, idx)
}
