package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// JobKind selects the archiver operation a manifest job runs.
type JobKind string

const (
	KindDirectory JobKind = "directory"
	KindFiles     JobKind = "files"
	KindExtract   JobKind = "extract"
)

type (
	// Manifest describes a batch of archive jobs.
	Manifest struct {
		Concurrency      int    `json:"concurrency,omitempty" validate:"min=0"`
		Strict           bool   `json:"strict,omitempty"`
		CompressionLevel int    `json:"compressionLevel,omitempty" validate:"min=-2,max=9"`
		Remote           string `json:"remote,omitempty"`
		RemoteDir        string `json:"remoteDir,omitempty"`
		Jobs             []Job  `json:"jobs" validate:"required,min=1,dive"`
	}

	// Job is a single archive, files or extract request.
	Job struct {
		Name        string   `json:"name" validate:"required"`
		Kind        JobKind  `json:"kind" validate:"required,oneof=directory files extract"`
		Source      string   `json:"source,omitempty" validate:"required_unless=Kind files"`
		Files       []string `json:"files,omitempty" validate:"required_if=Kind files,dive,required"`
		Exclude     []string `json:"exclude,omitempty"`
		Destination string   `json:"destination" validate:"required"`
		// Push uploads the written archive to the manifest remote.
		Push bool `json:"push,omitempty"`
		// Pull names a remote object downloaded to Source before extracting.
		Pull string `json:"pull,omitempty"`
	}
)

// LoadManifest reads and validates the manifest at path. Relative paths in
// jobs are resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("manifest %s does not exist", path)
	}

	m := &Manifest{}
	if err := loadFile(path, m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	if m.Concurrency == 0 {
		m.Concurrency = 1
	}

	m.resolve(filepath.Dir(path))

	return m, nil
}

func (m *Manifest) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	for i := range m.Jobs {
		j := &m.Jobs[i]
		j.Source = abs(j.Source)
		j.Destination = abs(j.Destination)
		for k := range j.Files {
			j.Files[k] = abs(j.Files[k])
		}
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(manifestStructLevel, Manifest{})
	return v
}

func manifestStructLevel(sl validator.StructLevel) {
	m := sl.Current().Interface().(Manifest)

	seen := make(map[string]struct{}, len(m.Jobs))
	for i, j := range m.Jobs {
		field := func(name string) string { return fmt.Sprintf("Jobs[%d].%s", i, name) }

		if _, dup := seen[j.Name]; dup {
			sl.ReportError(j.Name, field("Name"), "Name", "unique", "")
		}
		seen[j.Name] = struct{}{}

		if (j.Push || j.Pull != "") && m.Remote == "" {
			sl.ReportError(m.Remote, field("Remote"), "Remote", "required_with_transfer", "")
		}

		if j.Push && j.Kind == KindExtract {
			sl.ReportError(j.Push, field("Push"), "Push", "archive_kind", "")
		}

		if j.Pull != "" && j.Kind != KindExtract {
			sl.ReportError(j.Pull, field("Pull"), "Pull", "extract_kind", "")
		}
	}
}
