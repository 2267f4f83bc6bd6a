package main

import (
	"github.com/spf13/cobra"

	"github.com/meigma/cats"
)

func (a *app) newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack archive [input_dir]",
		Short: "Pack input_dir (default \".\") into archive",
		Args:  argsRange(1, 2),
		RunE:  a.runPack,
	}
	addPackFlags(cmd)
	return cmd
}

func addPackFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP(keyNoGzip, "n", false, "store file contents uncompressed")
	cmd.Flags().StringSliceP(keyExclude, "x", nil, "skip paths matching a glob such as '**/*.tmp' (repeatable)")
}

func (a *app) runPack(cmd *cobra.Command, args []string) error {
	if err := a.bind(cmd); err != nil {
		return err
	}
	target := args[0]
	input := "."
	if len(args) > 1 {
		input = args[1]
	}

	verbose := a.v.GetBool(keyVerbose)
	compression := cats.CompressionGzip
	if a.v.GetBool(keyNoGzip) {
		compression = cats.CompressionNone
	}

	return cats.Pack(cmd.Context(), input, target,
		cats.PackWithCompression(compression),
		cats.PackWithVerbose(verbose),
		cats.PackWithExclude(a.v.GetStringSlice(keyExclude)...),
		cats.PackWithLogger(newLogger(a.stderr, verbose)),
	)
}
