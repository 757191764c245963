package reliability

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Entity is a request body
type Entity interface {
	// Open returns a reader over the full body
	Open() (io.ReadCloser, error)
	// Repeatable reports whether Open may be called more than once
	Repeatable() bool
	// ContentLength is the body size, or -1 if unknown
	ContentLength() int64
}

// BytesEntity is an in-memory, repeatable body
type BytesEntity []byte

func (b BytesEntity) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (b BytesEntity) Repeatable() bool { return true }

func (b BytesEntity) ContentLength() int64 { return int64(len(b)) }

// ReaderEntity is a one-shot streaming body
type ReaderEntity struct {
	mu     sync.Mutex
	r      io.Reader
	length int64
	opened bool
}

// NewReaderEntity wraps r; length may be -1
func NewReaderEntity(r io.Reader, length int64) *ReaderEntity {
	return &ReaderEntity{r: r, length: length}
}

func (e *ReaderEntity) Open() (io.ReadCloser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opened {
		return nil, fmt.Errorf("%w: stream already consumed", ErrBodyNotRepeatable)
	}
	e.opened = true
	if rc, ok := e.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(e.r), nil
}

func (e *ReaderEntity) Repeatable() bool { return false }

func (e *ReaderEntity) ContentLength() int64 { return e.length }
