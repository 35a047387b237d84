package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Store persists the tracking document as a single JSON file. Every operation
// loads the whole document, mutates it, recomputes stats and writes it back
// while holding an exclusive flock on a sidecar lock file, so concurrent
// processes serialise instead of losing updates.
type Store struct {
	path string
	now  func() time.Time
	loc  *time.Location
	log  *zap.Logger
	mu   sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the timezone that decides where a day starts.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore returns a store backed by the file at path. The file and its
// directory are created on first access.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		now:  time.Now,
		loc:  time.Local,
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the location of the tracking file.
func (s *Store) Path() string {
	return s.path
}

// Today returns the current time in the store's location.
func (s *Store) Today() time.Time {
	return s.now().In(s.loc)
}

// Result is what an update leaves behind.
type Result struct {
	State    *State
	Entry    DailyEntry
	Complete bool
	Ignored  bool
}

// Read returns the current document with stats recomputed for today. The
// recomputed stats are not written back.
func (s *Store) Read(ctx context.Context) (*State, error) {
	var state *State
	err := s.withLock(ctx, func() error {
		st, created, err := s.load()
		if err != nil {
			return err
		}
		if created {
			if err := s.save(st); err != nil {
				return err
			}
		}
		state = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	state.Stats = Recompute(state.Days, s.Today(), state.Stats.LastEntry)
	return state, nil
}

// Update applies a single field change to the entry for u.Date, creating the
// entry if needed, then recomputes stats and persists the whole document.
// Unknown fields are ignored and nothing is written.
func (s *Store) Update(ctx context.Context, u Update) (*Result, error) {
	today := s.Today()
	date, err := s.resolveDate(u.Date, today)
	if err != nil {
		return nil, err
	}
	u.Date = date

	var res *Result
	err = s.withLock(ctx, func() error {
		state, _, err := s.load()
		if err != nil {
			return err
		}

		idx := state.Find(date)
		entry := NewEntry(date)
		if idx >= 0 {
			entry = state.Days[idx]
		}

		applied, err := Apply(&entry, u)
		if err != nil {
			return err
		}
		if !applied {
			s.log.Debug("ignoring unknown field", zap.String("date", date), zap.Int("field", int(u.Field)))
			res = &Result{State: state, Entry: entry, Complete: entry.Complete(), Ignored: true}
			return nil
		}

		if idx >= 0 {
			state.Days[idx] = entry
		} else {
			state.Days = append(state.Days, entry)
		}
		state.Stats = Recompute(state.Days, today, date)

		if err := s.save(state); err != nil {
			return err
		}
		s.log.Debug("tracked field",
			zap.String("date", date),
			zap.Stringer("field", u.Field),
			zap.Bool("complete", entry.Complete()),
		)
		res = &Result{State: state, Entry: entry, Complete: entry.Complete()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) resolveDate(date string, today time.Time) (string, error) {
	if date == "" {
		return DateString(today), nil
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if d.After(Day(today)) {
		return "", fmt.Errorf("%w: %s", ErrFutureDate, date)
	}
	return date, nil
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating tracking dir: %w", err)
	}
	f, err := os.OpenFile(s.path+".lock", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("locking tracking file: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn()
}

// load reads the document. A missing file yields a fresh state and
// created=true; any other read or decode failure is returned.
func (s *Store) load() (*State, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewState(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading tracking file: %w", err)
	}
	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, false, fmt.Errorf("parsing tracking file: %w", err)
	}
	if state.Days == nil {
		state.Days = []DailyEntry{}
	}
	for i := range state.Days {
		if state.Days[i].Gratitudes == nil {
			state.Days[i].Gratitudes = []string{}
		}
		s.dropUnknownTokens(&state.Days[i])
	}
	return state, false, nil
}

// dropUnknownTokens clears enum answers that no longer parse so the day reads
// as unanswered for that field instead of failing the load.
func (s *Store) dropUnknownTokens(e *DailyEntry) {
	warn := func(field, value string) {
		s.log.Warn("dropping unknown value in tracking file",
			zap.String("date", e.Date),
			zap.String("field", field),
			zap.String("value", value),
		)
	}
	if m := e.Meditation.Times; m != nil && !m.valid() {
		warn("meditation.times", string(*m))
		e.Meditation.Times = nil
	}
	if d := e.Meditation.Duration; d != nil && !d.valid() {
		warn("meditation.duration", string(*d))
		e.Meditation.Duration = nil
	}
	if c := e.BestPrompt; c != nil && !c.valid() {
		warn("bestPrompt", string(*c))
		e.BestPrompt = nil
	}
}

// save writes to a temp file in the same directory and renames it over the
// target so readers never see a partial document.
func (s *Store) save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tracking state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tracking-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing tracking file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing tracking file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing tracking file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing tracking file: %w", err)
	}
	return nil
}
