package archiver

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type (
	// ArchiveTask requests an archive built either from a directory tree
	// (Root) or from an explicit list of files (Files).
	ArchiveTask struct {
		Root        string   `validate:"required_without=Files,excluded_with=Files"`
		Files       []string `validate:"required_without=Root,excluded_with=Root"`
		Destination string   `validate:"required"`
		Exclude     []string `validate:"excluded_without=Root"`
	}

	// ExtractionTask requests that Source be unpacked into Destination.
	ExtractionTask struct {
		Source      string `validate:"required"`
		Destination string `validate:"required"`
	}
)

func (t ArchiveTask) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: archive task: %v", ErrInvalidArgument, err)
	}
	return nil
}

// Run performs the task with a.
func (t ArchiveTask) Run(a *Archiver) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if t.Root != "" {
		return a.ArchiveDirectory(t.Root, t.Destination, t.Exclude...)
	}
	return a.ArchiveFiles(t.Files, t.Destination)
}

func (t ExtractionTask) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: extraction task: %v", ErrInvalidArgument, err)
	}
	return nil
}

// Run performs the task with a.
func (t ExtractionTask) Run(a *Archiver) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return a.Extract(t.Source, t.Destination)
}
