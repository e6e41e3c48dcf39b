//go:build !unix

package jsonstore

// lockFile is a no-op on platforms without flock; the in-process mutex still
// serializes access within one process.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
