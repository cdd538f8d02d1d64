package main

import "github.com/grailbio/fastaidx/cmd/bio-fasta/cmd"

func main() {
	cmd.Run()
}
