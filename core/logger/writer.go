package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

const (
	writerQueue  = 256
	writerBuffer = 64 * 1024
)

// asyncWriter moves sink I/O off the logging goroutines. A single loop owns
// the sinks; Flush and Close synchronize with it through channels.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}
	close   sync.Once
	sinks   []*bufio.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = writerBuffer
	}
	w := &asyncWriter{
		lines:   make(chan []byte, writerQueue),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.record(w.flush())
				return
			}
			w.record(w.write(line))
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

// Write queues a copy of p; it blocks when the queue is full rather than dropping.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failed(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	select {
	case <-w.done:
		return errWriterClosed
	default:
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until everything queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return errors.Join(<-ack, w.failed())
	case <-w.done:
		return w.failed()
	}
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.close.Do(func() { close(w.lines) })
	<-w.done
	return w.failed()
}

func (w *asyncWriter) write(p []byte) error {
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *asyncWriter) failed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
