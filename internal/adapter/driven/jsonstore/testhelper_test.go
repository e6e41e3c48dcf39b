package jsonstore

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/secrets"
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestCipher(t *testing.T, seed byte) *secrets.Cipher {
	t.Helper()
	c, err := secrets.NewCipher(bytes.Repeat([]byte{seed}, secrets.KeySize))
	require.NoError(t, err)
	return c
}

func testOptions(clock *stepClock) []Option {
	return []Option{
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

// setupWordPressRepo returns a repository over a fresh document in a temp dir.
func setupWordPressRepo(t *testing.T) (*WordPressRepo, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wordpress_connections.json")
	return NewWordPressRepo(path, newTestCipher(t, 0x11), testOptions(newStepClock())...), path
}

func setupServiceRepo(t *testing.T) (*ServiceRepo, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service_connections.json")
	return NewServiceRepo(path, newTestCipher(t, 0x11), testOptions(newStepClock())...), path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func ptr[T any](v T) *T {
	return &v
}
