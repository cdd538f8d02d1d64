package cmd

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/fastaidx/encoding/fasta"
	"v.io/x/lib/cmdline"
)

// parserFlags registers the flags shared by every subcommand.
func parserFlags(fs *flag.FlagSet) *fasta.ParserOpts {
	opts := &fasta.ParserOpts{}
	fs.StringVar(&opts.IndexPath, "index", "", "Index filename. By default, set to the FASTA path + "+fasta.IndexSuffix)
	fs.BoolVar(&opts.NoIndex, "no-index", false, "Ignore any existing index and scan the FASTA file")
	return opts
}

func parseEntryNumber(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid entry number %q: %v", s, err)
	}
	return i, nil
}

func newCmdCount() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "count",
		Short:    "Print the number of entries in a FASTA file",
		ArgsName: "path",
	}
	opts := parserFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("count takes one pathname argument, but got %v", argv)
		}
		return count(vcontext.Background(), env.Stdout, argv[0], *opts)
	})
	return cmd
}

func newCmdGet() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "get",
		Short:    "Print entries of a FASTA file by number",
		Long:     "Entries are numbered from 1 in file order.",
		ArgsName: "path entry...",
	}
	opts := parserFlags(&cmd.Flags)
	cmd.Flags.IntVar(&opts.LineWidth, "width", fasta.LineWidth, "Sequence characters per output line")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("get takes a path and at least one entry number, but got %v", argv)
		}
		var nums []int
		for _, arg := range argv[1:] {
			i, err := parseEntryNumber(arg)
			if err != nil {
				return err
			}
			nums = append(nums, i)
		}
		return get(vcontext.Background(), env.Stdout, argv[0], *opts, nums)
	})
	return cmd
}

func newCmdFirstLast(name string, last bool) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     name,
		Short:    fmt.Sprintf("Print the %s entry of a FASTA file", name),
		ArgsName: "path",
	}
	opts := parserFlags(&cmd.Flags)
	cmd.Flags.IntVar(&opts.LineWidth, "width", fasta.LineWidth, "Sequence characters per output line")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("%s takes one pathname argument, but got %v", name, argv)
		}
		return firstOrLast(vcontext.Background(), env.Stdout, argv[0], *opts, last)
	})
	return cmd
}

func newCmdRange() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "range",
		Short: "Print a range of entries of a FASTA file",
		Long: `Prints entries start through stop, inclusive, numbering from 1.
The range is clamped to the entries that exist, so "range x.fna 1 1000000"
prints the whole file.`,
		ArgsName: "path start stop",
	}
	opts := parserFlags(&cmd.Flags)
	cmd.Flags.IntVar(&opts.LineWidth, "width", fasta.LineWidth, "Sequence characters per output line")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("range takes path start stop, but got %v", argv)
		}
		start, err := parseEntryNumber(argv[1])
		if err != nil {
			return err
		}
		stop, err := parseEntryNumber(argv[2])
		if err != nil {
			return err
		}
		return printRange(vcontext.Background(), env.Stdout, argv[0], *opts, start, stop)
	})
	return cmd
}

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Build and save the index of a FASTA file",
		ArgsName: "path",
	}
	opts := parserFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("index takes one pathname argument, but got %v", argv)
		}
		return index(vcontext.Background(), argv[0], *opts)
	})
	return cmd
}

func newCmdUnindex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "unindex",
		Short:    "Remove the index of a FASTA file",
		ArgsName: "path",
	}
	opts := parserFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("unindex takes one pathname argument, but got %v", argv)
		}
		return unindex(vcontext.Background(), argv[0], *opts)
	})
	return cmd
}

func newCmdDumpIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "dumpindex",
		Short:    "Print the index of a FASTA file as TSV",
		Long:     "Each output row holds an entry number and the byte offset of its header line.",
		ArgsName: "path",
	}
	opts := parserFlags(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("dumpindex takes one pathname argument, but got %v", argv)
		}
		return dumpIndex(vcontext.Background(), env.Stdout, argv[0], *opts)
	})
	return cmd
}

func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-fasta",
			Short:    "Tools for reading indexed FASTA files",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCount(),
				newCmdGet(),
				newCmdFirstLast("first", false),
				newCmdFirstLast("last", true),
				newCmdRange(),
				newCmdIndex(),
				newCmdUnindex(),
				newCmdDumpIndex(),
			},
		})
}
