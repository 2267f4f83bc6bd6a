package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/meigma/cats"
	"github.com/meigma/cats/internal/names"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list archive [pattern]",
		Short: "List the entries of archive in stored order",
		Long: `List every entry of archive depth-first, in the order it is stored.
Files show their stored size and compression; directories end in "/".
With a pattern, only paths matching that doublestar glob are listed.`,
		Args: argsRange(1, 2),
		RunE: a.runList,
	}
}

func (a *app) runList(cmd *cobra.Command, args []string) error {
	pattern := "**"
	if len(args) > 1 {
		pattern = args[1]
		if !doublestar.ValidatePattern(pattern) {
			return &cats.Error{Kind: cats.KindUnknownArgument, Err: fmt.Errorf("invalid pattern %q", pattern)}
		}
	}

	archive, err := cats.Open(args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORED\tCOMPRESSION\tPATH")
	err = archive.Walk(func(p string, e cats.Entry) error {
		if ok, _ := doublestar.Match(pattern, p); !ok {
			return nil
		}
		switch e := e.(type) {
		case cats.File:
			fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Size, e.Compression, printable(p))
		case cats.Directory:
			fmt.Fprintf(tw, "-\t-\t%s/\n", printable(p))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return &cats.Error{Kind: cats.KindErrorWritingFile, Path: "-", Err: err}
	}
	return nil
}

// printable quotes p when any of its names would be rejected on unpack, so
// control bytes from a crafted archive never reach the terminal.
func printable(p string) string {
	for name := range strings.SplitSeq(p, "/") {
		if !names.Valid(name) {
			return strconv.Quote(p)
		}
	}
	return p
}
