package cats

import (
	"context"
	"os"
)

// Unpack extracts the archive file archivePath into destDir.
//
// archivePath must be a regular file starting with Magic and carrying a
// header of Version. The whole archive is read into memory before anything
// is written. Every entry name is validated, so nothing is written outside
// destDir. A failure part way through leaves the files written so far.
func Unpack(ctx context.Context, destDir, archivePath string, opts ...UnpackOption) error {
	cfg := newUnpackConfig(opts)

	info, err := os.Stat(archivePath)
	if err != nil {
		return &Error{Kind: KindInvalidInputPath, Path: archivePath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &Error{Kind: KindInvalidInputPath, Path: archivePath}
	}

	a, err := Open(archivePath, ReadWithMaxDepth(cfg.maxDepth))
	if err != nil {
		return err
	}

	if cfg.progress != nil {
		cfg.progress(ProgressEvent{
			Stage:     StageDecodingHeader,
			Path:      archivePath,
			BytesDone: uint64(a.DataSize()), //nolint:gosec // DataSize is never negative
		})
	}
	cfg.log().Info("unpacking archive", "archive", archivePath, "dest", destDir, "data_size", a.DataSize())

	files, err := a.extract(ctx, destDir, &cfg)
	if err != nil {
		return err
	}

	cfg.log().Info("archive unpacked", "dest", destDir, "files", files)
	return nil
}
