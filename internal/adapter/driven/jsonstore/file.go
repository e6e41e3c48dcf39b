// Package jsonstore persists connection records in JSON documents on the local
// filesystem, encrypting secret fields with a driven.SecretCipher.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// writeFunc replaces the file at path with data.
type writeFunc func(path string, data []byte) error

// atomicWrite writes data to a temp file in the target directory and renames
// it over path, so readers see either the old or the new document.
func atomicWrite(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Option configures a repository.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
	write  writeFunc
}

func defaultOptions() options {
	return options{
		logger: slog.Default(),
		now:    time.Now,
		write:  atomicWrite,
	}
}

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the time source for created_at, updated_at and last_used.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// jsonFile is one JSON document guarded by an in-process mutex and an advisory
// file lock. Every access is a complete load (and optionally save) cycle.
type jsonFile[D any] struct {
	path   string
	mu     sync.Mutex
	newDoc func() D
	write  writeFunc
	logger *slog.Logger
}

func newJSONFile[D any](path string, newDoc func() D, o options) *jsonFile[D] {
	return &jsonFile[D]{
		path:   path,
		newDoc: newDoc,
		write:  o.write,
		logger: o.logger,
	}
}

// view loads the document and passes it to fn. Changes made by fn are discarded.
func (f *jsonFile[D]) view(ctx context.Context, fn func(D) error) error {
	return f.locked(ctx, func() error {
		doc, err := f.load()
		if err != nil {
			return err
		}
		return fn(doc)
	})
}

// update loads the document, lets fn mutate it and saves it when fn reports a
// change. A failed save leaves the file as it was and wraps driven.ErrPersistence.
func (f *jsonFile[D]) update(ctx context.Context, fn func(D) (bool, error)) error {
	return f.locked(ctx, func() error {
		doc, err := f.load()
		if err != nil {
			return err
		}
		changed, err := fn(doc)
		if err != nil || !changed {
			return err
		}
		return f.save(doc)
	})
}

func (f *jsonFile[D]) locked(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%w: create directory: %v", driven.ErrPersistence, err)
	}
	unlock, err := lockFile(f.path)
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrPersistence, err)
	}
	defer unlock()

	return fn()
}

// load reads the document. A missing or empty file is an empty document; a
// file that does not parse is driven.ErrCorruptDocument.
func (f *jsonFile[D]) load() (D, error) {
	doc := f.newDoc()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", f.path, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return doc, nil
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		f.logger.Error("connection store document is not valid JSON", "path", f.path, "error", err)
		return doc, fmt.Errorf("%w: %s: %v", driven.ErrCorruptDocument, f.path, err)
	}
	return doc, nil
}

func (f *jsonFile[D]) save(doc D) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", driven.ErrPersistence, f.path, err)
	}
	data = append(data, '\n')

	if err := f.write(f.path, data); err != nil {
		storeSaveFailures.WithLabelValues(filepath.Base(f.path)).Inc()
		f.logger.Error("failed to save connection store", "path", f.path, "error", err)
		return fmt.Errorf("%w: write %s: %v", driven.ErrPersistence, f.path, err)
	}
	return nil
}
