// Package archiver builds and extracts zip archives from directory trees and
// file lists.
package archiver

import (
	"fmt"

	"github.com/mholt/archiver/v3"
	"github.com/spf13/afero"

	"github.com/flowshot-io/zipkit/pkg/logger"
)

const formatName = "archive.zip"

type (
	Options struct {
		// Fs is the filesystem every read and write goes through.
		Fs afero.Fs
		// Logger receives per-operation diagnostics. Defaults to a no-op logger.
		Logger logger.Logger
		// CompressionLevel is the flate level. Zero keeps the library default.
		CompressionLevel int
		// Strict fails with ErrNotFound when a file vanishes before it is added
		// instead of skipping it.
		Strict bool
	}

	// Archiver is stateless between calls; each operation opens and closes its
	// own archive handle.
	Archiver struct {
		fs     afero.Fs
		logger logger.Logger
		level  int
		strict bool
	}
)

func New(opts *Options) *Archiver {
	if opts == nil {
		opts = &Options{}
	}

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.Logger == nil {
		opts.Logger = logger.NoOp()
	}

	return &Archiver{
		fs:     opts.Fs,
		logger: opts.Logger,
		level:  opts.CompressionLevel,
		strict: opts.Strict,
	}
}

// CheckSupport reports whether the zip format can be both written and read.
func (a *Archiver) CheckSupport() (bool, error) {
	format, err := archiver.ByExtension(formatName)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	if _, ok := format.(archiver.Writer); !ok {
		return false, fmt.Errorf("%w: %T cannot write archives", ErrUnsupported, format)
	}

	if _, ok := format.(archiver.Reader); !ok {
		return false, fmt.Errorf("%w: %T cannot read archives", ErrUnsupported, format)
	}

	return true, nil
}

func (a *Archiver) newZip() *archiver.Zip {
	z := archiver.NewZip()
	if a.level != 0 {
		z.CompressionLevel = a.level
	}
	return z
}
