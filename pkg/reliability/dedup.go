package reliability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Status is the result of a duplicate check
type Status int

const (
	// StatusNew means the caller claimed the message and must process it
	StatusNew Status = iota
	// StatusDuplicate means the message was seen before
	StatusDuplicate
)

func (s Status) String() string {
	if s == StatusDuplicate {
		return "duplicate"
	}
	return "new"
}

// CheckResult describes a message ID lookup
type CheckResult struct {
	Status Status
	// Outcome is the recorded response of the first reception, nil while
	// it is still in flight
	Outcome   []byte
	InFlight  bool
	FirstSeen time.Time
}

// IsDuplicate reports whether the message was seen before
func (r CheckResult) IsDuplicate() bool {
	return r.Status == StatusDuplicate
}

type dedupRecord struct {
	firstSeen time.Time
	once      sync.Once
	done      chan struct{}
	// outcome and forgotten are written before done is closed
	outcome   []byte
	forgotten bool
}

func newDedupRecord(now time.Time) *dedupRecord {
	return &dedupRecord{firstSeen: now, done: make(chan struct{})}
}

func (r *dedupRecord) complete(outcome []byte, forgotten bool) {
	r.once.Do(func() {
		r.outcome = outcome
		r.forgotten = forgotten
		close(r.done)
	})
}

func (r *dedupRecord) completed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// DuplicateStore remembers received message IDs for a disposal window.
// Exactly one concurrent caller gets StatusNew for a given ID.
type DuplicateStore struct {
	records sync.Map // message ID -> *dedupRecord
	window  time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// DuplicateStoreOption configures a DuplicateStore
type DuplicateStoreOption func(*DuplicateStore)

// WithDisposalWindow sets how long completed records are kept. Zero keeps
// them forever.
func WithDisposalWindow(d time.Duration) DuplicateStoreOption {
	return func(s *DuplicateStore) {
		s.window = d
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) DuplicateStoreOption {
	return func(s *DuplicateStore) {
		s.now = now
	}
}

// WithStoreLogger sets the logger
func WithStoreLogger(logger *slog.Logger) DuplicateStoreOption {
	return func(s *DuplicateStore) {
		s.logger = logger
	}
}

// DefaultDisposalWindow is used when no window is configured
const DefaultDisposalWindow = 10 * time.Minute

// NewDuplicateStore creates an empty store
func NewDuplicateStore(opts ...DuplicateStoreOption) *DuplicateStore {
	s := &DuplicateStore{
		window: DefaultDisposalWindow,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the disposal window
func (s *DuplicateStore) Window() time.Duration {
	return s.window
}

func (s *DuplicateStore) expired(r *dedupRecord, now time.Time) bool {
	return s.window > 0 && r.completed() && now.Sub(r.firstSeen) > s.window
}

// CheckAndRecord atomically registers messageID. The first caller gets
// StatusNew and owns processing until RecordOutcome or Forget is called.
func (s *DuplicateStore) CheckAndRecord(messageID string) CheckResult {
	now := s.now()
	fresh := newDedupRecord(now)

	for {
		v, loaded := s.records.LoadOrStore(messageID, fresh)
		if !loaded {
			return CheckResult{Status: StatusNew, InFlight: true, FirstSeen: now}
		}
		existing := v.(*dedupRecord)
		if s.expired(existing, now) {
			if s.records.CompareAndSwap(messageID, existing, fresh) {
				return CheckResult{Status: StatusNew, InFlight: true, FirstSeen: now}
			}
			continue
		}
		if existing.completed() {
			return CheckResult{Status: StatusDuplicate, Outcome: existing.outcome, FirstSeen: existing.firstSeen}
		}
		return CheckResult{Status: StatusDuplicate, InFlight: true, FirstSeen: existing.firstSeen}
	}
}

// RecordOutcome stores the response of the first reception. Only the first
// call per reception takes effect.
func (s *DuplicateStore) RecordOutcome(messageID string, outcome []byte) error {
	v, ok := s.records.Load(messageID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	v.(*dedupRecord).complete(append([]byte(nil), outcome...), false)
	return nil
}

// Forget drops messageID so that a retransmission is processed again.
// Callers blocked in Wait get ErrUnknownMessage.
func (s *DuplicateStore) Forget(messageID string) {
	if v, ok := s.records.LoadAndDelete(messageID); ok {
		v.(*dedupRecord).complete(nil, true)
	}
}

// Wait blocks until the first reception of messageID completes and returns
// its outcome
func (s *DuplicateStore) Wait(ctx context.Context, messageID string) ([]byte, error) {
	v, ok := s.records.Load(messageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	r := v.(*dedupRecord)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
	}
	if r.forgotten {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	return r.outcome, nil
}

// Evict removes completed records older than the disposal window and
// returns how many were removed. Records still in flight are kept.
func (s *DuplicateStore) Evict(now time.Time) int {
	if s.window <= 0 {
		return 0
	}
	removed := 0
	s.records.Range(func(key, value any) bool {
		if r := value.(*dedupRecord); s.expired(r, now) && s.records.CompareAndDelete(key, r) {
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of records
func (s *DuplicateStore) Len() int {
	n := 0
	s.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Run evicts expired records every interval until ctx is done
func (s *DuplicateStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.window <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(s.now()); n > 0 {
				s.logger.Debug("evicted duplicate detection records", "count", n, "remaining", s.Len())
			}
		}
	}
}
