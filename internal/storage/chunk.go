package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/room-relay/backend/internal/model"
)

// ChunkResult is the outcome of appending one chunk.
type ChunkResult struct {
	Completed bool
	Received  int
	URL       string
}

// ChunkAssembler rebuilds files uploaded in sequential chunks. Parts are
// appended to "<name>.part" and renamed into place when the last chunk arrives.
type ChunkAssembler struct {
	store  *LocalStore
	prefix string
	mu     sync.Mutex
}

// NewChunkAssembler stores completed files under prefix, e.g. "uploads".
func NewChunkAssembler(store *LocalStore, prefix string) *ChunkAssembler {
	return &ChunkAssembler{
		store:  store,
		prefix: prefix,
	}
}

// Append adds chunk index of total to filename. The first chunk starts the
// file over.
func (a *ChunkAssembler) Append(ctx context.Context, filename string, index, total int, r io.Reader) (*ChunkResult, error) {
	name := SafeName(filename)
	if name == "" || name != filename || index < 0 || total <= 0 || index >= total {
		return nil, model.ErrInvalidChunk
	}
	objectName := a.prefix + "/" + name

	final, err := a.store.path(objectName)
	if err != nil {
		return nil, err
	}
	partPath := final + ".part"

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if index == 0 {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open part file: %w", err)
	}
	_, err = io.Copy(f, contextReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append chunk: %w", err)
	}

	if index+1 < total {
		return &ChunkResult{Received: index}, nil
	}

	if err := os.Rename(partPath, final); err != nil {
		return nil, fmt.Errorf("failed to assemble upload: %w", err)
	}

	return &ChunkResult{Completed: true, Received: index, URL: a.store.URL(objectName)}, nil
}
