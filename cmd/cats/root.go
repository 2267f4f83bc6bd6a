package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/cats"
)

// Config keys. Each is also read from the environment as CATS_<KEY> with
// dashes replaced by underscores.
const (
	keyVerbose = "verbose"
	keyNoGzip  = "no-gzip"
	keyWorkers = "workers"
	keyExclude = "exclude"
)

// app carries what every command needs.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{v: newViper(), stdout: stdout, stderr: stderr}
	root := a.newRootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	err = asCatsError(err)
	fmt.Fprintf(stderr, "An error occurred!\n%s\n", err)
	return cats.ExitCode(err)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CATS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyVerbose, false)
	v.SetDefault(keyNoGzip, false)
	v.SetDefault(keyWorkers, 1)
	v.SetDefault(keyExclude, []string{})
	return v
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cats archive [input_dir]",
		Short: "Pack a directory into a deduplicated archive",
		Long: `cats packs a directory tree into a single archive file. Files with
identical content are stored once. Contents are gzip-compressed unless
--no-gzip is given.

Without a subcommand, cats packs input_dir (default ".") into archive.`,
		Args:          argsRange(1, 2),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.runPack,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cats.Error{Kind: cats.KindUnknownArgument, Err: err}
	})

	root.PersistentFlags().BoolP(keyVerbose, "v", false, "log every file and directory")
	addPackFlags(root)

	root.AddCommand(a.newPackCmd())
	root.AddCommand(a.newUnpackCmd())
	root.AddCommand(a.newListCmd())
	return root
}

// bind makes the command's flags visible through viper, so that a flag
// given on the command line takes precedence over the environment.
func (a *app) bind(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return &cats.Error{Kind: cats.KindUnknownArgument, Err: err}
	}
	return nil
}

// argsRange is cobra.RangeArgs with an UnknownArgument error.
func argsRange(lo, hi int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < lo || len(args) > hi {
			return &cats.Error{
				Kind: cats.KindUnknownArgument,
				Err:  fmt.Errorf("accepts between %d and %d arg(s), received %d", lo, hi, len(args)),
			}
		}
		return nil
	}
}

// asCatsError maps errors from outside the archive library, such as an
// unknown subcommand, onto UnknownArgument.
func asCatsError(err error) error {
	var ce *cats.Error
	if errors.As(err, &ce) || errors.Is(err, context.Canceled) {
		return err
	}
	return &cats.Error{Kind: cats.KindUnknownArgument, Err: err}
}
