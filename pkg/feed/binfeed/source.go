// Package binfeed reads fixed-size binary bar records out of a memory
// mapped archive. Records must be written packed, little endian, in
// timestamp order; lookup of the start position is a binary search.
package binfeed

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/exp/mmap"
)

var ErrEof = errors.New("EOF")

// Archive provides random access to fixed-size records of type T backed by
// an mmap'd file. T must not contain padding.
type Archive[T any] struct {
	path       string
	recordSize int64

	mapped  *mmap.ReaderAt
	scratch sync.Pool
}

func NewArchive[T any](path string) *Archive[T] {
	size := int64(unsafe.Sizeof(*new(T)))
	a := &Archive[T]{path: path, recordSize: size}
	a.scratch.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return a
}

func (a *Archive[T]) Open() error {
	if a.recordSize == 0 {
		return fmt.Errorf("record type has zero size")
	}
	mapped, err := mmap.Open(a.path)
	if err != nil {
		return fmt.Errorf("open archive %q: %w", a.path, err)
	}
	a.mapped = mapped
	return nil
}

func (a *Archive[T]) Close() error {
	if a.mapped == nil {
		return nil
	}
	return a.mapped.Close()
}

// Read copies record index into data. Reading past the last record is
// ErrEof.
func (a *Archive[T]) Read(index int64, data *T) error {
	buf := a.scratch.Get().(*[]byte)
	defer a.scratch.Put(buf)

	n, err := a.mapped.ReadAt(*buf, index*a.recordSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read record %d: %w", index, err)
	}
	if int64(n) < a.recordSize {
		return ErrEof
	}

	*data = *(*T)(unsafe.Pointer(&(*buf)[0])) // #nosec G103
	return nil
}

// EntryCount derives the record count from the file size. A size that is
// not a whole number of records means a corrupt archive.
func (a *Archive[T]) EntryCount() (int64, error) {
	info, err := os.Stat(a.path)
	if err != nil {
		return 0, fmt.Errorf("stat archive %q: %w", a.path, err)
	}
	if info.Size()%a.recordSize != 0 {
		return 0, fmt.Errorf("archive %q size %d is not a whole number of %d byte records",
			a.path, info.Size(), a.recordSize)
	}
	return info.Size() / a.recordSize, nil
}
