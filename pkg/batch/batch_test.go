package batch_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flowshot-io/zipkit/pkg/archiver"
	"github.com/flowshot-io/zipkit/pkg/batch"
	"github.com/flowshot-io/zipkit/pkg/config"
	"github.com/flowshot-io/zipkit/pkg/logger"
)

type fakeRemote struct {
	mu     sync.Mutex
	pushed map[string]string
	blobs  map[string][]byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{pushed: map[string]string{}, blobs: map[string][]byte{}}
}

func (f *fakeRemote) Push(ctx context.Context, localPath string, name string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed[name] = localPath
	f.blobs[name] = data
	return nil
}

func (f *fakeRemote) Pull(ctx context.Context, name string, localPath string) error {
	f.mu.Lock()
	data, ok := f.blobs[name]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no remote object %s", name)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newRunner(remote batch.Transferer, concurrency int) *batch.Runner {
	log := logger.NoOp()
	return batch.New(&batch.Options{
		Archiver:    archiver.New(&archiver.Options{Logger: log}),
		Remote:      remote,
		Logger:      log,
		Concurrency: concurrency,
	})
}

func TestRunner(t *testing.T) {
	t.Run("Archive Then Extract", func(t *testing.T) {
		dir := t.TempDir()
		mustWrite(t, filepath.Join(dir, "site", "a", "x.txt"), "hello")
		mustWrite(t, filepath.Join(dir, "site", "cache", "tmp.bin"), "junk")
		mustWrite(t, filepath.Join(dir, "loose", "note.txt"), "note")
		if err := os.MkdirAll(filepath.Join(dir, "out"), 0o755); err != nil {
			t.Fatal(err)
		}

		jobs := []config.Job{
			{
				Name:        "restore",
				Kind:        config.KindExtract,
				Source:      filepath.Join(dir, "out", "site.zip"),
				Destination: filepath.Join(dir, "restore"),
			},
			{
				Name:        "site",
				Kind:        config.KindDirectory,
				Source:      filepath.Join(dir, "site"),
				Exclude:     []string{"cache"},
				Destination: filepath.Join(dir, "out", "site.zip"),
			},
			{
				Name:        "notes",
				Kind:        config.KindFiles,
				Files:       []string{filepath.Join(dir, "loose", "note.txt")},
				Destination: filepath.Join(dir, "out", "notes.zip"),
			},
		}

		if err := newRunner(nil, 2).Run(context.Background(), jobs); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		got, err := os.ReadFile(filepath.Join(dir, "restore", "a", "x.txt"))
		if err != nil {
			t.Fatalf("restored file missing: %v", err)
		}
		if string(got) != "hello" {
			t.Errorf("restored content = %q, want %q", got, "hello")
		}

		if _, err := os.Stat(filepath.Join(dir, "restore", "cache")); !os.IsNotExist(err) {
			t.Errorf("excluded folder was restored")
		}

		if _, err := os.Stat(filepath.Join(dir, "out", "notes.zip")); err != nil {
			t.Errorf("notes archive missing: %v", err)
		}
	})

	t.Run("Push And Pull", func(t *testing.T) {
		dir := t.TempDir()
		mustWrite(t, filepath.Join(dir, "src", "data.csv"), "1,2,3")
		if err := os.MkdirAll(filepath.Join(dir, "out"), 0o755); err != nil {
			t.Fatal(err)
		}

		remote := newFakeRemote()
		jobs := []config.Job{
			{
				Name:        "data",
				Kind:        config.KindDirectory,
				Source:      filepath.Join(dir, "src"),
				Destination: filepath.Join(dir, "out", "data.zip"),
				Push:        true,
			},
			{
				Name:        "fetch",
				Kind:        config.KindExtract,
				Pull:        "data.zip",
				Source:      filepath.Join(dir, "downloads", "data.zip"),
				Destination: filepath.Join(dir, "fetched"),
			},
		}

		if err := newRunner(remote, 1).Run(context.Background(), jobs); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if remote.pushed["data.zip"] != filepath.Join(dir, "out", "data.zip") {
			t.Errorf("archive was not pushed: %v", remote.pushed)
		}

		got, err := os.ReadFile(filepath.Join(dir, "fetched", "data.csv"))
		if err != nil || string(got) != "1,2,3" {
			t.Errorf("pulled archive not extracted: %q %v", got, err)
		}
	})

	t.Run("Push Without Remote", func(t *testing.T) {
		dir := t.TempDir()
		mustWrite(t, filepath.Join(dir, "src", "a.txt"), "a")

		err := newRunner(nil, 1).Run(context.Background(), []config.Job{{
			Name:        "a",
			Kind:        config.KindDirectory,
			Source:      filepath.Join(dir, "src"),
			Destination: filepath.Join(dir, "a.zip"),
			Push:        true,
		}})
		if err == nil || !strings.Contains(err.Error(), "no remote") {
			t.Fatalf("expected missing remote error, got %v", err)
		}
	})
}

func TestDuplicateDestinations(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "same.zip")

	jobs := []config.Job{
		{Name: "one", Kind: config.KindDirectory, Source: dir, Destination: dest},
		{Name: "two", Kind: config.KindFiles, Files: []string{dest}, Destination: dest + "/../same.zip"},
	}

	err := newRunner(nil, 4).Run(context.Background(), jobs)
	if err == nil || !strings.Contains(err.Error(), "both write") {
		t.Fatalf("expected duplicate destination error, got %v", err)
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("no job should have run")
	}
}

func TestFailureIsReported(t *testing.T) {
	dir := t.TempDir()

	var jobs []config.Job
	for i := 0; i < 10; i++ {
		jobs = append(jobs, config.Job{
			Name:        fmt.Sprintf("job%d", i),
			Kind:        config.KindDirectory,
			Source:      filepath.Join(dir, "missing"),
			Destination: filepath.Join(dir, fmt.Sprintf("out%d.zip", i)),
		})
	}

	err := newRunner(nil, 3).Run(context.Background(), jobs)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(err.Error(), "job job") {
		t.Errorf("error should name the job: %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "src", "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newRunner(nil, 1).Run(ctx, []config.Job{{
		Name:        "a",
		Kind:        config.KindDirectory,
		Source:      filepath.Join(dir, "src"),
		Destination: filepath.Join(dir, "a.zip"),
	}})
	if err == nil {
		t.Fatal("expected context error")
	}

	if _, statErr := os.Stat(filepath.Join(dir, "a.zip")); !os.IsNotExist(statErr) {
		t.Errorf("job ran despite cancelled context")
	}
}
