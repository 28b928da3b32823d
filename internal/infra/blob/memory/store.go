// Package memory keeps blobs in process memory. Tests and ephemeral runs
// use it in place of a real bucket.
package memory

import (
	"bytes"
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"roomcore/internal/blob/core"
)

type object struct {
	info core.Info
	body []byte
}

// Store is a map of key to object guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	clock   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		objects: map[string]object{},
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Driver reports core.DriverMemory.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put buffers r and stores it under key. The ETag is the SHA-256 of the
// body, matching the filesystem driver.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.TrimSpace(key) == "" {
		return core.Info{}, errors.New("blob key is empty")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, fmt.Errorf("buffer %s: %w", key, err)
	}
	sum := sha256.Sum256(body)
	info := core.Info{
		Key:          key,
		Size:         int64(len(body)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     maps.Clone(opts.Metadata),
		LastModified: s.clock(),
	}
	s.mu.Lock()
	s.objects[key] = object{info: info, body: body}
	s.mu.Unlock()
	return copyInfo(info), nil
}

// Get returns a reader over a private copy of the body.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("%s: %w", key, core.ErrNotExist)
	}
	return copyInfo(obj.info), io.NopCloser(bytes.NewReader(bytes.Clone(obj.body))), nil
}

// Delete reports whether key was present.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

// List returns objects under prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	out := make([]core.Info, 0, len(s.objects))
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, copyInfo(obj.info))
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b core.Info) int { return cmp.Compare(a.Key, b.Key) })
	return out, nil
}

func copyInfo(in core.Info) core.Info {
	in.Metadata = maps.Clone(in.Metadata)
	return in
}
