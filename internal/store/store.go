package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/unearth/internal/logging"
	"github.com/ppiankov/unearth/internal/model"
)

var (
	// ErrNotFound is returned for unknown report ids
	ErrNotFound = errors.New("report not found")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("store closed")
)

// Store is the content-addressed report store
type Store interface {
	// Lookup returns the report committed for a content hash
	Lookup(ctx context.Context, hash string) (*model.AnalysisResults, bool, error)

	// Commit stores a new report for a hash and returns its id. If the hash
	// was committed concurrently, the existing report wins and is returned.
	Commit(ctx context.Context, hash string, res *model.AnalysisResults) (*model.AnalysisResults, error)

	// Get returns a report by id
	Get(ctx context.Context, id string) (*model.AnalysisResults, error)

	// Vote increments one counter of a report's tally
	Vote(ctx context.Context, id string, dir model.VoteDirection) (model.VoteTally, error)
}

// Option configures a FileStore
type Option func(*FileStore)

// WithReportURL sets how the shareable report URL is derived from an id
func WithReportURL(fn func(id string) string) Option {
	return func(s *FileStore) { s.reportURL = fn }
}

// WithIDGenerator replaces the report id source
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *FileStore) { s.newID = fn }
}

// WithQueueSize sets the mutation queue depth
func WithQueueSize(n int) Option {
	return func(s *FileStore) {
		if n > 0 {
			s.queue = n
		}
	}
}

// FileStore persists every report in one JSON document. All operations run
// on a single goroutine, which reads the document in full and rewrites it
// in full for each mutation.
type FileStore struct {
	path      string
	reportURL func(id string) string
	newID     func() (string, error)
	queue     int

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	log *slog.Logger
}

// Open starts the store actor for the document at path
func Open(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:      path,
		reportURL: func(id string) string { return "/reports/" + id },
		newID:     newUUID,
		queue:     64,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       logging.New("store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ops = make(chan func(), s.queue)
	go s.run()
	return s
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate report id: %w", err)
	}
	return id.String(), nil
}

func (s *FileStore) run() {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.quit:
			// Drain what was already accepted
			for {
				select {
				case op := <-s.ops:
					op()
				default:
					return
				}
			}
		}
	}
}

// Close stops the actor after pending operations finish
func (s *FileStore) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	return nil
}

// do runs fn on the actor goroutine and waits for it
func (s *FileStore) do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	op := func() { result <- fn() }

	select {
	case <-s.quit:
		return ErrClosed
	default:
	}

	select {
	case s.ops <- op:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns the report for hash, if one was committed
func (s *FileStore) Lookup(ctx context.Context, hash string) (*model.AnalysisResults, bool, error) {
	var res *model.AnalysisResults
	err := s.do(ctx, func() error {
		doc, err := readDocument(s.path)
		if err != nil {
			return err
		}
		id, ok := doc.Cache[hash]
		if !ok {
			return nil
		}
		res, err = doc.report(id)
		if errors.Is(err, ErrNotFound) {
			// Index points at a missing report; treat as a miss
			s.log.Warn("dangling cache entry", "hash", hash, "id", id)
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return res, res != nil, nil
}

// Commit assigns a fresh id and URL and writes the report and its hash
// index entry. The caller's value is not modified.
func (s *FileStore) Commit(ctx context.Context, hash string, res *model.AnalysisResults) (*model.AnalysisResults, error) {
	if res == nil {
		return nil, fmt.Errorf("commit: nil report")
	}
	if hash == "" {
		return nil, fmt.Errorf("commit: empty content hash")
	}

	var committed *model.AnalysisResults
	err := s.do(ctx, func() error {
		doc, err := readDocument(s.path)
		if err != nil {
			return err
		}

		// First committer wins
		if id, ok := doc.Cache[hash]; ok {
			if existing, err := doc.report(id); err == nil {
				s.log.Debug("hash already committed", "hash", hash, "id", id)
				committed = existing
				return nil
			}
		}

		id, err := s.newID()
		if err != nil {
			return err
		}
		if _, taken := doc.Reports[id]; taken {
			return fmt.Errorf("commit: report id %s already exists", id)
		}

		report := *res
		report.ID = id
		report.ReportURL = s.reportURL(id)
		report.ContentHash = hash
		report.Votes = model.VoteTally{}

		raw, err := json.Marshal(&report)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		doc.Reports[id] = raw
		doc.Votes[id] = model.VoteTally{}
		doc.Cache[hash] = id

		if err := writeDocument(s.path, doc); err != nil {
			return err
		}

		s.log.Debug("report committed", "hash", hash, "id", id)
		committed = &report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// Get returns a report by id
func (s *FileStore) Get(ctx context.Context, id string) (*model.AnalysisResults, error) {
	var res *model.AnalysisResults
	err := s.do(ctx, func() error {
		doc, err := readDocument(s.path)
		if err != nil {
			return err
		}
		res, err = doc.report(id)
		return err
	})
	return res, err
}

// Vote increments exactly one counter. The tally never decreases.
func (s *FileStore) Vote(ctx context.Context, id string, dir model.VoteDirection) (model.VoteTally, error) {
	var tally model.VoteTally
	err := s.do(ctx, func() error {
		doc, err := readDocument(s.path)
		if err != nil {
			return err
		}
		if _, ok := doc.Reports[id]; !ok {
			return ErrNotFound
		}

		tally = doc.Votes[id]
		switch dir {
		case model.VoteUp:
			tally.Up++
		case model.VoteDown:
			tally.Down++
		default:
			return fmt.Errorf("invalid vote direction %q", dir)
		}
		doc.Votes[id] = tally

		return writeDocument(s.path, doc)
	})
	if err != nil {
		return model.VoteTally{}, err
	}
	return tally, nil
}
