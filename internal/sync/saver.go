package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a queued edit is written.
const DefaultDebounce = 500 * time.Millisecond

// PageWriter persists the whole page list of one book.
type PageWriter interface {
	SavePages(ctx context.Context, bookID string, pages []Page) error
}

type pendingSave struct {
	timer    *time.Timer
	snapshot func() []Page
}

// Saver coalesces rapid page edits into one write per book. At most one
// timer exists per book id; a new edit resets it and replaces the snapshot,
// so the state at fire time is what gets persisted. Intermediate states are
// dropped, which is the accepted trade-off for avoiding write storms.
type Saver struct {
	writer  PageWriter
	delay   time.Duration
	log     zerolog.Logger
	onError func(bookID string, err error)

	mu      stdsync.Mutex
	pending map[string]*pendingSave
	wg      stdsync.WaitGroup
}

// NewSaver builds a Saver; delay <= 0 selects DefaultDebounce.
func NewSaver(writer PageWriter, delay time.Duration, log zerolog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Saver{
		writer:  writer,
		delay:   delay,
		log:     log,
		pending: make(map[string]*pendingSave),
	}
}

// OnError registers a callback for failed writes. A failed save leaves the
// caller's in-memory state intact; the next edit re-triggers a save, there
// is no automatic retry.
func (s *Saver) OnError(fn func(bookID string, err error)) {
	s.onError = fn
}

// Queue schedules a debounced write for the book. The snapshot function is
// evaluated when the timer fires, not when the edit is queued.
func (s *Saver) Queue(bookID string, snapshot func() []Page) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[bookID]; ok {
		p.snapshot = snapshot
		p.timer.Reset(s.delay)
		return
	}

	p := &pendingSave{snapshot: snapshot}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(bookID) })
	s.pending[bookID] = p
}

func (s *Saver) fire(bookID string) {
	s.mu.Lock()
	p, ok := s.pending[bookID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, bookID)
	snapshot := p.snapshot
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.write(bookID, snapshot())
}

func (s *Saver) write(bookID string, pages []Page) {
	if err := s.writer.SavePages(context.Background(), bookID, pages); err != nil {
		s.log.Warn().Err(err).Str("book_id", bookID).Msg("debounced save failed")
		if s.onError != nil {
			s.onError(bookID, err)
		}
	}
}

// Flush writes any pending state for the book immediately and cancels its
// timer. Books with nothing queued are a no-op.
func (s *Saver) Flush(bookID string) error {
	s.mu.Lock()
	p, ok := s.pending[bookID]
	if ok {
		p.timer.Stop()
		delete(s.pending, bookID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.writer.SavePages(context.Background(), bookID, p.snapshot())
}

// Close cancels all pending timers without writing and waits for in-flight
// fires to finish.
func (s *Saver) Close() {
	s.mu.Lock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
