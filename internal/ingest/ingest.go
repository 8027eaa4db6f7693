// Package ingest bulk-loads user segment assignments from gzip-compressed
// CSV files into the offer server.
package ingest

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cart-offers/internal/domain/offer"
)

// Assignment is one parsed input line.
type Assignment struct {
	UserID  int64
	Segment offer.Segment
	File    string
	Line    int
}

// ParseLine parses "user_id,segment". Blank lines and lines starting with
// '#' report ok=false.
func ParseLine(s string) (a Assignment, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return Assignment{}, false, nil
	}

	rawID, rawSeg, found := strings.Cut(s, ",")
	if !found {
		return Assignment{}, false, errors.Errorf("expected user_id,segment, got %q", s)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return Assignment{}, false, errors.Errorf("invalid user_id %q", rawID)
	}
	seg, err := offer.ParseSegment(strings.TrimSpace(rawSeg))
	if err != nil {
		return Assignment{}, false, err
	}
	return Assignment{UserID: id, Segment: seg}, true, nil
}

// Writer stores a segment assignment.
type Writer interface {
	SetUserSegment(ctx context.Context, userID int64, segment string) error
}

// Config configures an Ingester.
type Config struct {
	// Workers is the number of concurrent writers. Defaults to 1.
	Workers int
	// ExpectedUsers sizes the repeat-detection filter.
	ExpectedUsers uint
	// Strict fails the run on the first malformed line instead of skipping it.
	Strict bool
}

// Stats summarises a run.
type Stats struct {
	Lines   int64
	Written int64
	Invalid int64
	Repeats int64
}

// Ingester streams files and forwards assignments to a Writer.
type Ingester struct {
	lg      *zap.Logger
	w       Writer
	cfg     Config
	seen    *bloom.BloomFilter
	lines   atomic.Int64
	written atomic.Int64
	invalid atomic.Int64
	repeats atomic.Int64
}

// New creates an Ingester.
func New(lg *zap.Logger, w Writer, cfg Config) *Ingester {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ExpectedUsers == 0 {
		cfg.ExpectedUsers = 1_000_000
	}
	return &Ingester{
		lg:   lg,
		w:    w,
		cfg:  cfg,
		seen: bloom.NewWithEstimates(cfg.ExpectedUsers, 0.001),
	}
}

// Stats returns counters accumulated so far.
func (in *Ingester) Stats() Stats {
	return Stats{
		Lines:   in.lines.Load(),
		Written: in.written.Load(),
		Invalid: in.invalid.Load(),
		Repeats: in.repeats.Load(),
	}
}

// Run ingests files in order. Assignments are partitioned across workers by
// user ID, so writes for one user keep file order and the last line wins.
func (in *Ingester) Run(ctx context.Context, files []string) error {
	g, ctx := errgroup.WithContext(ctx)

	queues := make([]chan Assignment, in.cfg.Workers)
	for i := range queues {
		queues[i] = make(chan Assignment, 64)
		q := queues[i]
		g.Go(func() error { return in.write(ctx, q) })
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		for _, path := range files {
			if err := in.readFile(ctx, path, func(a Assignment) error {
				select {
				case queues[a.UserID%int64(len(queues))] <- a:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

func (in *Ingester) write(ctx context.Context, q <-chan Assignment) error {
	for a := range q {
		if err := in.w.SetUserSegment(ctx, a.UserID, string(a.Segment)); err != nil {
			return errors.Wrapf(err, "%s:%d: set segment for user %d", a.File, a.Line, a.UserID)
		}
		in.written.Add(1)
	}
	return nil
}

func (in *Ingester) readFile(ctx context.Context, path string, emit func(Assignment) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	if err := in.read(ctx, path, gz, emit); err != nil {
		return err
	}
	in.lg.Info("File ingested", zap.String("file", path), zap.Int64("total_lines", in.lines.Load()))
	return nil
}

// read parses every line of r, emitting valid assignments.
func (in *Ingester) read(ctx context.Context, name string, r io.Reader, emit func(Assignment) error) error {
	scanner := bufio.NewScanner(r)
	var buf []byte
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		in.lines.Add(1)

		a, ok, err := ParseLine(scanner.Text())
		if err != nil {
			if in.cfg.Strict {
				return errors.Wrapf(err, "%s:%d", name, line)
			}
			in.invalid.Add(1)
			in.lg.Warn("Skipping invalid line",
				zap.String("file", name),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}
		a.File, a.Line = name, line

		buf = strconv.AppendInt(buf[:0], a.UserID, 10)
		if in.seen.TestOrAdd(buf) {
			in.repeats.Add(1)
			in.lg.Debug("User reassigned",
				zap.Int64("user_id", a.UserID),
				zap.String("segment", string(a.Segment)),
				zap.String("file", name),
				zap.Int("line", line),
			)
		}

		if err := emit(a); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", name)
	}
	return nil
}
