package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/cats"
)

func (a *app) newUnpackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack archive [destination]",
		Short: "Unpack archive into destination",
		Long: `Unpack archive into destination. Without a destination the archive
path minus its extension is used, so "backup.cats" unpacks into "backup".`,
		Args: argsRange(1, 2),
		RunE: a.runUnpack,
	}
	cmd.Flags().IntP(keyWorkers, "j", 1, "number of files written concurrently")
	return cmd
}

func (a *app) runUnpack(cmd *cobra.Command, args []string) error {
	if err := a.bind(cmd); err != nil {
		return err
	}
	archive := args[0]
	dest := defaultDestination(archive)
	if len(args) > 1 {
		dest = args[1]
	}

	verbose := a.v.GetBool(keyVerbose)
	return cats.Unpack(cmd.Context(), dest, archive,
		cats.UnpackWithVerbose(verbose),
		cats.UnpackWithWorkers(a.v.GetInt(keyWorkers)),
		cats.UnpackWithLogger(newLogger(a.stderr, verbose)),
	)
}

// defaultDestination strips the extension from archive. A dotfile name
// such as ".cats" has no extension and is returned unchanged.
func defaultDestination(archive string) string {
	ext := filepath.Ext(archive)
	if ext == "" || ext == filepath.Base(archive) {
		return archive
	}
	return strings.TrimSuffix(archive, ext)
}
