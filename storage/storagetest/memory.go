// Package storagetest provides an in-memory AssetStore for tests.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"bosko/core/apperr"
	"bosko/storage"
)

// Store is an in-memory storage.AssetStore that records deletions.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	Deleted []string
	// FailPut, when set, is returned by Put.
	FailPut error
}

var _ storage.AssetStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{objects: map[string][]byte{}, types: map[string]string{}}
}

// Seed stores an object directly.
func (s *Store) Seed(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
}

// Has reports whether key exists.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// DeleteCount returns how many times key was deleted.
func (s *Store) DeleteCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.Deleted {
		if k == key {
			n++
		}
	}
	return n
}

func (s *Store) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if s.FailPut != nil {
		return "", apperr.Storage("put", s.FailPut)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", apperr.Storage("put", err)
	}
	s.Seed(key, data, contentType)
	return "https://storage.test/" + key + "?signed", nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, apperr.NotFound("object %s not found", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, key)
	if _, ok := s.objects[key]; !ok {
		return apperr.NotFound("object %s not found", key)
	}
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

func (s *Store) Stream(_ context.Context, key string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, apperr.NotFound("object %s not found", key)
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: s.types[key],
		Size:        int64(len(data)),
	}, nil
}

func (s *Store) Sign(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://storage.test/" + key + "?ttl=" + ttl.String(), nil
}
