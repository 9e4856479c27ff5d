package remote_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.beyondstorage.io/v5/services"
	"go.beyondstorage.io/v5/types"

	"github.com/flowshot-io/zipkit/pkg/remote"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	readErr error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) WriteWithContext(ctx context.Context, path string, r io.Reader, size int64, pairs ...types.Pair) (int64, error) {
	data, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return int64(len(data)), nil
}

func (s *memStore) ReadWithContext(ctx context.Context, path string, w io.Writer, pairs ...types.Pair) (int64, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	s.mu.Lock()
	data, ok := s.objects[path]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("read %s: %w", path, services.ErrObjectNotExist)
	}
	n, err := io.Copy(w, bytes.NewReader(data))
	return n, err
}

func (s *memStore) StatWithContext(ctx context.Context, path string, pairs ...types.Pair) (*types.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return nil, fmt.Errorf("stat %s: %w", path, services.ErrObjectNotExist)
	}
	return &types.Object{}, nil
}

func (s *memStore) DeleteWithContext(ctx context.Context, path string, pairs ...types.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func TestNewRequiresStore(t *testing.T) {
	_, err := remote.New(remote.Options{})
	assert.Error(t, err)
}

func TestPushPullDelete(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := newMemStore()

	client, err := remote.New(remote.Options{Store: store, Fs: fs})
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/out/site.zip", []byte("zip bytes"), 0o644))

	require.NoError(t, client.Push(ctx, "/out/site.zip", "site.zip"))
	assert.Equal(t, []byte("zip bytes"), store.objects["archives/site.zip"])

	require.NoError(t, client.Pull(ctx, "site.zip", "/restore/in/site.zip"))
	got, err := afero.ReadFile(fs, "/restore/in/site.zip")
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(got))

	require.NoError(t, client.Delete(ctx, "site.zip"))
	err = client.Pull(ctx, "site.zip", "/restore/again.zip")
	assert.True(t, errors.Is(err, remote.ErrNotFound), "got %v", err)
}

func TestPullFailureLeavesTargetUntouched(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := newMemStore()
	store.objects["custom/a.zip"] = []byte("new")
	store.readErr = errors.New("connection reset")

	client, err := remote.New(remote.Options{Store: store, Fs: fs, WorkingDir: "custom"})
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/local/a.zip", []byte("old"), 0o644))

	err = client.Pull(ctx, "a.zip", "/local/a.zip")
	require.Error(t, err)

	got, readErr := afero.ReadFile(fs, "/local/a.zip")
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(got))

	entries, readErr := afero.ReadDir(fs, "/local")
	require.NoError(t, readErr)
	assert.Len(t, entries, 1, "staging file left behind")
}

func TestPushMissingFile(t *testing.T) {
	client, err := remote.New(remote.Options{Store: newMemStore(), Fs: afero.NewMemMapFs()})
	require.NoError(t, err)

	assert.Error(t, client.Push(context.Background(), "/nope.zip", "nope.zip"))
}

func TestOpenRequiresConnectionString(t *testing.T) {
	_, err := remote.Open("  ")
	assert.Error(t, err)
}
