package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flowshot-io/zipkit/pkg/archiver"
	"github.com/flowshot-io/zipkit/pkg/config"
	"github.com/flowshot-io/zipkit/pkg/logger"
)

type (
	// Transferer moves archives to and from remote storage.
	Transferer interface {
		Push(ctx context.Context, localPath string, name string) error
		Pull(ctx context.Context, name string, localPath string) error
	}

	Options struct {
		Archiver *archiver.Archiver
		// Remote is required only by jobs that push or pull.
		Remote      Transferer
		Logger      logger.Logger
		Concurrency int
	}

	// Runner executes manifest jobs. Archive jobs run before extract jobs so an
	// extract may consume an archive written in the same run.
	Runner struct {
		archiver    *archiver.Archiver
		remote      Transferer
		logger      logger.Logger
		concurrency int
	}
)

// New creates and returns a new Runner.
func New(opts *Options) *Runner {
	if opts == nil {
		opts = &Options{}
	}

	if opts.Logger == nil {
		opts.Logger = logger.New(nil)
	}

	if opts.Archiver == nil {
		opts.Archiver = archiver.New(&archiver.Options{Logger: opts.Logger})
	}

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Runner{
		archiver:    opts.Archiver,
		remote:      opts.Remote,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
	}
}

// Run executes jobs and returns the first failure. Once a job fails, jobs that
// have not started yet are skipped.
func (r *Runner) Run(ctx context.Context, jobs []config.Job) error {
	runID := uuid.NewString()

	if err := checkDestinations(jobs); err != nil {
		r.logger.Error("Refusing manifest", map[string]interface{}{
			"run":   runID,
			"error": err.Error(),
		})
		return err
	}

	var archives, extracts []config.Job
	for _, j := range jobs {
		if j.Kind == config.KindExtract {
			extracts = append(extracts, j)
		} else {
			archives = append(archives, j)
		}
	}

	r.logger.Info("Starting jobs...", map[string]interface{}{
		"run":      runID,
		"archives": len(archives),
		"extracts": len(extracts),
	})

	for _, phase := range [][]config.Job{archives, extracts} {
		if err := r.runPhase(ctx, runID, phase); err != nil {
			r.logger.Error("Error during jobs", map[string]interface{}{
				"run":   runID,
				"error": err.Error(),
			})
			return err
		}
	}

	r.logger.Info("All jobs finished successfully", map[string]interface{}{
		"run": runID,
	})
	return nil
}

func (r *Runner) runPhase(ctx context.Context, runID string, jobs []config.Job) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, j := range jobs {
		j := j

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := r.runJob(ctx, j); err != nil {
				r.logger.Error(fmt.Sprintf("Error running job %s", j.Name), map[string]interface{}{
					"run":   runID,
					"error": err.Error(),
				})
				return fmt.Errorf("job %s: %w", j.Name, err)
			}

			r.logger.Info(fmt.Sprintf("Job %s finished successfully", j.Name), map[string]interface{}{
				"run":         runID,
				"kind":        string(j.Kind),
				"destination": j.Destination,
			})
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) runJob(ctx context.Context, j config.Job) error {
	switch j.Kind {
	case config.KindDirectory:
		if err := (archiver.ArchiveTask{Root: j.Source, Destination: j.Destination, Exclude: j.Exclude}).Run(r.archiver); err != nil {
			return err
		}
		return r.push(ctx, j)

	case config.KindFiles:
		if err := (archiver.ArchiveTask{Files: j.Files, Destination: j.Destination}).Run(r.archiver); err != nil {
			return err
		}
		return r.push(ctx, j)

	case config.KindExtract:
		if j.Pull != "" {
			if r.remote == nil {
				return errors.New("pull requested but no remote is configured")
			}
			if err := r.remote.Pull(ctx, j.Pull, j.Source); err != nil {
				return err
			}
		}
		return (archiver.ExtractionTask{Source: j.Source, Destination: j.Destination}).Run(r.archiver)
	}

	return fmt.Errorf("unknown job kind %q", j.Kind)
}

func (r *Runner) push(ctx context.Context, j config.Job) error {
	if !j.Push {
		return nil
	}
	if r.remote == nil {
		return errors.New("push requested but no remote is configured")
	}
	return r.remote.Push(ctx, j.Destination, filepath.Base(j.Destination))
}

// checkDestinations refuses two jobs writing the same path, which the
// archiver does not guard against.
func checkDestinations(jobs []config.Job) error {
	owner := make(map[string]string, len(jobs))
	for _, j := range jobs {
		dest := filepath.Clean(j.Destination)
		if prev, ok := owner[dest]; ok {
			return fmt.Errorf("jobs %s and %s both write %s", prev, j.Name, dest)
		}
		owner[dest] = j.Name
	}
	return nil
}
