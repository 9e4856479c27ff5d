package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.beyondstorage.io/v5/services"
	"go.beyondstorage.io/v5/types"

	"github.com/flowshot-io/zipkit/pkg/logger"
)

const defaultWorkingDir = "archives"

// ErrNotFound is returned when a remote archive does not exist.
var ErrNotFound = errors.New("remote archive not found")

type (
	// Store is the subset of types.Storager the client needs.
	Store interface {
		WriteWithContext(ctx context.Context, path string, r io.Reader, size int64, pairs ...types.Pair) (int64, error)
		ReadWithContext(ctx context.Context, path string, w io.Writer, pairs ...types.Pair) (int64, error)
		StatWithContext(ctx context.Context, path string, pairs ...types.Pair) (*types.Object, error)
		DeleteWithContext(ctx context.Context, path string, pairs ...types.Pair) error
	}

	// Options holds the configuration for the remote client.
	Options struct {
		Store      Store
		WorkingDir string
		Fs         afero.Fs
		Logger     logger.Logger
	}

	// Client moves archives between the local filesystem and a remote store.
	Client struct {
		store      Store
		workingDir string
		fs         afero.Fs
		logger     logger.Logger
	}
)

// New returns a new Client.
func New(opts Options) (*Client, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	if opts.WorkingDir == "" {
		opts.WorkingDir = defaultWorkingDir
	}

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.Logger == nil {
		opts.Logger = logger.NoOp()
	}

	return &Client{
		store:      opts.Store,
		workingDir: opts.WorkingDir,
		fs:         opts.Fs,
		logger:     opts.Logger,
	}, nil
}

// Push uploads the local archive at localPath as name.
func (c *Client) Push(ctx context.Context, localPath string, name string) error {
	file, err := c.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get archive stat: %w", err)
	}

	n, err := c.store.WriteWithContext(ctx, c.getWorkingPath(name), file, stat.Size())
	if err != nil {
		return fmt.Errorf("failed to write archive %s: %w", name, err)
	}

	c.logger.Info("Archive pushed", map[string]interface{}{
		"archive": localPath,
		"remote":  c.getWorkingPath(name),
		"bytes":   n,
	})

	return nil
}

// Pull downloads name to localPath. The download lands in a staging file that
// replaces localPath only once it is complete.
func (c *Client) Pull(ctx context.Context, name string, localPath string) error {
	remotePath := c.getWorkingPath(name)

	if _, err := c.store.StatWithContext(ctx, remotePath); err != nil {
		if errors.Is(err, services.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, remotePath)
		}
		return fmt.Errorf("failed to stat %s: %w", remotePath, err)
	}

	if err := c.fs.MkdirAll(filepath.Dir(localPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	staging := localPath + ".partial-" + uuid.NewString()
	file, err := c.fs.Create(staging)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	n, err := c.store.ReadWithContext(ctx, remotePath, file)
	if err != nil {
		file.Close()
		c.fs.Remove(staging)
		return fmt.Errorf("failed to read %s: %w", remotePath, err)
	}

	if err := file.Close(); err != nil {
		c.fs.Remove(staging)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := c.fs.Rename(staging, localPath); err != nil {
		c.fs.Remove(staging)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	c.logger.Info("Archive pulled", map[string]interface{}{
		"remote":  remotePath,
		"archive": localPath,
		"bytes":   n,
	})

	return nil
}

// Delete removes name from the remote store.
func (c *Client) Delete(ctx context.Context, name string) error {
	if err := c.store.DeleteWithContext(ctx, c.getWorkingPath(name)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	return nil
}

func (c *Client) getWorkingPath(name string) string {
	return path.Join(c.workingDir, name)
}
