package secrets

import (
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey_Encodings(t *testing.T) {
	want := testKey(0x07)

	tests := []struct {
		name string
		raw  string
	}{
		{"hex", hex.EncodeToString(want)},
		{"hex with newline", hex.EncodeToString(want) + "\n"},
		{"std base64", base64.StdEncoding.EncodeToString(want)},
		{"url base64", base64.URLEncoding.EncodeToString(want)},
		{"raw base64", base64.RawStdEncoding.EncodeToString(want)},
		{"raw bytes", string(want)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "too-short", hex.EncodeToString(testKey(1))[:62]} {
		_, err := ParseKey(raw)
		assert.Error(t, err, raw)
	}
}

func TestLoadOrCreateKey_EnvWins(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), ".wp_key")

	key, err := LoadOrCreateKey(hex.EncodeToString(testKey(9)), keyFile)
	require.NoError(t, err)
	assert.Equal(t, testKey(9), key)

	_, err = os.Stat(keyFile)
	assert.True(t, os.IsNotExist(err), "env key must not create a key file")
}

func TestLoadOrCreateKey_InvalidEnv(t *testing.T) {
	_, err := LoadOrCreateKey("not-a-key", filepath.Join(t.TempDir(), ".wp_key"))
	assert.Error(t, err)
}

func TestLoadOrCreateKey_CreatesPrivateFileOnce(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "nested", ".wp_key")

	first, err := LoadOrCreateKey("", keyFile)
	require.NoError(t, err)
	assert.Len(t, first, KeySize)

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	second, err := LoadOrCreateKey("", keyFile)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(keyFile))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

func TestLoadOrCreateKey_ReadsExistingFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), ".wp_key")
	require.NoError(t, os.WriteFile(keyFile, []byte(base64.StdEncoding.EncodeToString(testKey(3))), 0o600))

	key, err := LoadOrCreateKey("", keyFile)
	require.NoError(t, err)
	assert.Equal(t, testKey(3), key)
}

func TestLoadOrCreateKey_CorruptFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), ".wp_key")
	require.NoError(t, os.WriteFile(keyFile, []byte("garbage"), 0o600))

	_, err := LoadOrCreateKey("", keyFile)
	assert.Error(t, err)
}

func TestLoadOrCreateKey_ConcurrentFirstRunConverges(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), ".wp_key")

	const n = 16
	keys := make([][]byte, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys[i], errs[i] = LoadOrCreateKey("", keyFile)
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, keys[0], keys[i])
	}
}
