package download

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Sink receives the content of one blob. Each task owns its sink exclusively.
// Exactly one of Commit or Abort is called once the task ends: Commit when the
// blob was read completely (and verified, if enabled), Abort otherwise.
type Sink interface {
	io.Writer
	Commit() error
	Abort() error
}

// SinkFactory creates the sink for one task
type SinkFactory func(task Task) (Sink, error)

// FileSinks returns a factory that writes each blob to a uniquely named partial
// file in the passed directory. On commit the partial file is renamed to
// '<algorithm>-<hash>'. On abort it is removed, so nothing in the directory is
// ever incomplete unless it has the '.partial' extension.
func FileSinks(dir string) SinkFactory {
	return func(task Task) (Sink, error) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		partial := filepath.Join(dir, uuid.New().String()+".partial")
		f, err := os.Create(partial)
		if err != nil {
			return nil, err
		}
		return &fileSink{
			f:       f,
			partial: partial,
			final:   filepath.Join(dir, BlobFileName(task)),
		}, nil
	}
}

// BlobFileName is the name a committed file sink gets for the passed task
func BlobFileName(task Task) string {
	return fmt.Sprintf("%s-%s", task.Digest.Algorithm, task.Digest.Hash)
}

type fileSink struct {
	f       *os.File
	partial string
	final   string
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

func (s *fileSink) Commit() error {
	if err := s.f.Close(); err != nil {
		os.Remove(s.partial)
		return err
	}
	return os.Rename(s.partial, s.final)
}

func (s *fileSink) Abort() error {
	s.f.Close()
	return os.Remove(s.partial)
}

// Discard is a SinkFactory for sinks that drop everything. For dry runs, and for
// verifying blobs without keeping them.
func Discard(Task) (Sink, error) {
	return discardSink{}, nil
}

type discardSink struct{}

func (discardSink) Write(p []byte) (int, error) { return len(p), nil }
func (discardSink) Commit() error               { return nil }
func (discardSink) Abort() error                { return nil }
