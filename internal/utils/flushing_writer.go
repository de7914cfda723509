package utils

import (
	"errors"
	"io"
	"sync"
	"syscall"
)

// flushableTarget matches buffered writers exposing an explicit flush.
type flushableTarget interface {
	Flush() error
}

// syncableTarget matches file-backed writers exposing fsync semantics.
type syncableTarget interface {
	Sync() error
}

// FlushingWriter forwards writes to the wrapped writer and pushes the output
// through immediately so report lines and log lines interleave in order.
type FlushingWriter struct {
	destination io.Writer
	writeGuard  sync.Mutex
}

// NewFlushingWriter wraps the provided writer. A nil writer yields nil and an
// already wrapped writer is returned unchanged.
func NewFlushingWriter(destination io.Writer) io.Writer {
	if destination == nil {
		return nil
	}
	if existingWriter, alreadyWrapped := destination.(*FlushingWriter); alreadyWrapped {
		return existingWriter
	}
	return &FlushingWriter{destination: destination}
}

// Write forwards the payload and flushes the destination when it supports
// flushing or syncing.
func (flushingWriter *FlushingWriter) Write(payload []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.destination == nil {
		return 0, nil
	}

	flushingWriter.writeGuard.Lock()
	defer flushingWriter.writeGuard.Unlock()

	writtenByteCount, writeError := flushingWriter.destination.Write(payload)
	if writeError != nil {
		return writtenByteCount, writeError
	}
	return writtenByteCount, flushingWriter.pushThrough()
}

func (flushingWriter *FlushingWriter) pushThrough() error {
	switch target := flushingWriter.destination.(type) {
	case flushableTarget:
		return target.Flush()
	case syncableTarget:
		syncError := target.Sync()
		if syncError == nil || errors.Is(syncError, syscall.ENOTSUP) || errors.Is(syncError, syscall.EINVAL) {
			return nil
		}
		return syncError
	default:
		return nil
	}
}
