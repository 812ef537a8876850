// Package dataset collects scraped product records. The one-shot
// crawler pushes each product here as soon as it has been scraped, so
// a run that stops early still leaves the records gathered so far.
package dataset

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/zcamper/silver-scraper/pkg/product"
)

// Sink receives scraped products, one at a time.
type Sink interface {
	Push(product.Info) error
	Close() error
}

// FileSink appends products to a file as JSON lines.
type FileSink struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *json.Encoder
}

// NewFileSink opens (creating or appending to) the file at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset file %q", path)
	}
	return NewWriterSink(f), nil
}

// NewWriterSink writes JSON lines to an arbitrary writer; it is used
// for writing the dataset to stdout.
func NewWriterSink(w io.WriteCloser) *FileSink {
	return &FileSink{w: w, enc: json.NewEncoder(w)}
}

func (s *FileSink) Push(info product.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(info)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}

// BufferSink keeps pushed products in memory.
type BufferSink struct {
	mu       sync.Mutex
	products []product.Info
}

func (s *BufferSink) Push(info product.Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, info)
	return nil
}

func (s *BufferSink) Close() error {
	return nil
}

// Products returns a copy of everything pushed so far.
func (s *BufferSink) Products() []product.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]product.Info, len(s.products))
	copy(out, s.products)
	return out
}

// NopWriteCloser wraps a writer whose close is a no-op, e.g. stdout.
type NopWriteCloser struct {
	io.Writer
}

func (NopWriteCloser) Close() error { return nil }
