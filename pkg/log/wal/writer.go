package wal

import (
	"io"

	"kitedb/pkg/primitives"
)

// LogWriter buffers appends to the log file and tracks which prefix of the
// log has been written through to the underlying writer. It does not sync;
// the WAL syncs the file after forcing. An LSN is the byte offset at which a
// record begins.
type LogWriter struct {
	writer       io.WriterAt
	currentLSN   primitives.LSN
	flushedLSN   primitives.LSN
	buffer       []byte
	bufferOffset int
	bufferSize   int
}

func NewLogWriter(writer io.WriterAt, bufferSize int, current, flushed primitives.LSN) *LogWriter {
	return &LogWriter{
		writer:     writer,
		bufferSize: bufferSize,
		buffer:     make([]byte, bufferSize),
		currentLSN: current,
		flushedLSN: flushed,
	}
}

// Write appends data and returns the LSN assigned to its first byte.
// Records larger than the buffer bypass it.
func (w *LogWriter) Write(data []byte) (primitives.LSN, error) {
	assignedLSN := w.currentLSN

	if len(data) > w.bufferSize {
		if err := w.flush(); err != nil {
			return 0, err
		}
		if _, err := w.writer.WriteAt(data, int64(w.flushedLSN)); err != nil {
			return 0, err
		}
		n := primitives.LSN(len(data))
		w.flushedLSN += n
		w.currentLSN += n
		return assignedLSN, nil
	}

	if w.bufferOffset+len(data) > w.bufferSize {
		if err := w.flush(); err != nil {
			return 0, err
		}
	}
	copy(w.buffer[w.bufferOffset:], data)
	w.bufferOffset += len(data)
	w.currentLSN += primitives.LSN(len(data))
	return assignedLSN, nil
}

// Force ensures every byte up to and including the record at lsn has been
// written to the underlying writer.
func (w *LogWriter) Force(lsn primitives.LSN) error {
	if w.flushedLSN > lsn {
		return nil
	}
	return w.flush()
}

func (w *LogWriter) flush() error {
	if w.bufferOffset == 0 {
		return nil
	}

	if _, err := w.writer.WriteAt(w.buffer[:w.bufferOffset], int64(w.flushedLSN)); err != nil {
		return err
	}
	w.flushedLSN = w.currentLSN
	w.bufferOffset = 0
	return nil
}

func (w *LogWriter) CurrentLSN() primitives.LSN {
	return w.currentLSN
}

func (w *LogWriter) FlushedLSN() primitives.LSN {
	return w.flushedLSN
}

func (w *LogWriter) Close() error {
	return w.flush()
}
