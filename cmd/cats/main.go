// Command cats packs directories into CATS archives and unpacks them.
//
// Usage:
//
//	cats [-v] [-n] [-x glob] archive [input_dir]      pack input_dir (default ".") into archive
//	cats pack [-v] [-n] [-x glob] archive [input_dir] same as above
//	cats unpack [-v] [-j n] archive [destination]     unpack archive (default: archive without extension)
//	cats list archive [glob]                          list the entries of archive
//
// Flags can also be set through the environment: CATS_VERBOSE, CATS_NO_GZIP,
// CATS_EXCLUDE and CATS_WORKERS. On failure the error is printed to stderr and the
// process exits with the code of the error's kind.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
