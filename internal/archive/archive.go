// Package archive streams a share's files as a single ZIP. Entries are fetched
// and written one at a time, in order, straight into the response sink.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"sharebox/internal/metrics"
)

// State is the lifecycle stage of an archive stream.
type State int

const (
	Idle State = iota
	Opened
	Appending
	Finalizing
	Closed
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opened:
		return "opened"
	case Appending:
		return "appending"
	case Finalizing:
		return "finalizing"
	case Closed:
		return "closed"
	case Aborted:
		return "aborted"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// ErrNotWritable is returned when appending to a finished archive.
var ErrNotWritable = errors.New("archive is closed")

// BlobFetcher reads stored objects. *blob.S3Store implements it.
type BlobFetcher interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}

// Entry is one file to place in the archive.
type Entry struct {
	Name     string
	BlobKey  string
	Modified time.Time
}

// Streamer builds archives from blobs.
type Streamer struct {
	blobs BlobFetcher
	log   *zap.Logger
	level int
}

// NewStreamer creates a streamer that compresses at flate.BestCompression.
func NewStreamer(blobs BlobFetcher, log *zap.Logger) *Streamer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Streamer{blobs: blobs, log: log, level: flate.BestCompression}
}

// Result summarizes a finished stream.
type Result struct {
	State   State
	Written []string
	Skipped []string
}

// Stream writes every entry to w as a ZIP. A file that cannot be fetched is
// skipped and logged. An error is returned only when the sink or the encoder
// fails, or ctx is canceled; the archive is then Aborted and w holds an
// incomplete ZIP.
func (s *Streamer) Stream(ctx context.Context, w io.Writer, entries []Entry) (*Result, error) {
	a := s.Open(ctx, w)
	defer a.Close()

	for _, e := range entries {
		if err := a.Append(e); err != nil {
			return a.Result(), err
		}
	}

	if err := a.Close(); err != nil {
		return a.Result(), err
	}
	return a.Result(), nil
}

// Archive is a single in-progress ZIP stream. It is not safe for concurrent
// use.
type Archive struct {
	ctx   context.Context
	zw    *zip.Writer
	blobs BlobFetcher
	log   *zap.Logger
	state State
	names map[string]int
	res   Result
}

// Open starts an archive on w.
func (s *Streamer) Open(ctx context.Context, w io.Writer) *Archive {
	level := s.level
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	return &Archive{
		ctx:   ctx,
		zw:    zw,
		blobs: s.blobs,
		log:   s.log,
		state: Opened,
		names: make(map[string]int),
	}
}

// State returns the current stage.
func (a *Archive) State() State {
	return a.state
}

// Result returns what has been written and skipped so far.
func (a *Archive) Result() *Result {
	res := a.res
	res.State = a.state
	return &res
}

// Append fetches one blob and writes it as the next entry. A fetch failure
// skips the entry and returns nil. A canceled context or a failing sink
// aborts the archive and returns the error.
func (a *Archive) Append(e Entry) error {
	if a.state != Opened && a.state != Appending {
		return ErrNotWritable
	}
	a.state = Appending

	if err := a.ctx.Err(); err != nil {
		return a.abort(fmt.Errorf("archive canceled: %w", err))
	}

	data, err := a.fetch(e.BlobKey)
	if err != nil {
		// Context cancellation surfaces as a fetch error; it is not a per-file failure.
		if ctxErr := a.ctx.Err(); ctxErr != nil {
			return a.abort(fmt.Errorf("archive canceled: %w", ctxErr))
		}
		a.log.Warn("skipping archive entry",
			zap.String("filename", e.Name),
			zap.String("key", e.BlobKey),
			zap.Error(err),
		)
		a.res.Skipped = append(a.res.Skipped, e.Name)
		metrics.ArchiveEntry("skipped")
		return nil
	}

	name := a.uniqueName(e.Name)
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: e.Modified,
	}
	ew, err := a.zw.CreateHeader(header)
	if err != nil {
		return a.abort(fmt.Errorf("failed to write entry header %q: %w", name, err))
	}
	if _, err := ew.Write(data); err != nil {
		return a.abort(fmt.Errorf("failed to write entry %q: %w", name, err))
	}

	a.res.Written = append(a.res.Written, name)
	metrics.ArchiveEntry("written")
	return nil
}

// Close finalizes the archive by writing the central directory. It is safe to
// call more than once; after an abort it only releases state.
func (a *Archive) Close() error {
	switch a.state {
	case Closed, Aborted:
		return nil
	}

	a.state = Finalizing
	if err := a.zw.Close(); err != nil {
		return a.abort(fmt.Errorf("failed to finalize archive: %w", err))
	}
	a.state = Closed
	a.names = nil
	metrics.ArchiveFinished(Closed.String())
	return nil
}

func (a *Archive) abort(err error) error {
	a.state = Aborted
	a.names = nil
	metrics.ArchiveFinished(Aborted.String())
	a.log.Warn("archive aborted",
		zap.Int("written", len(a.res.Written)),
		zap.Int("skipped", len(a.res.Skipped)),
		zap.Error(err),
	)
	return err
}

// fetch reads a whole blob into memory. One file is buffered at a time.
func (a *Archive) fetch(key string) ([]byte, error) {
	rc, err := a.blobs.Fetch(a.ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return buf.Bytes(), nil
}

// uniqueName returns name, or "name (n).ext" if name was already used.
func (a *Archive) uniqueName(name string) string {
	n := a.names[name]
	a.names[name] = n + 1
	if n == 0 {
		return name
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		n++
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if a.names[candidate] == 0 {
			a.names[candidate] = 1
			a.names[name] = n
			return candidate
		}
	}
}
