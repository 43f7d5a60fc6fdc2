// Package navigation keeps the illusion of a directory tree over a flat
// keyspace: the current prefix, its listing, and the session state machine
// NoConfig -> ConfigActive(path) -> ... -> NoConfig.
package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/damacus/s3-manager/internal/models"
)

var (
	ErrNoConfig     = errors.New("no active configuration")
	ErrStaleListing = errors.New("listing superseded by a newer request")
	ErrAtRoot       = errors.New("already at the root")
)

// State of a browsing session
type State int

const (
	NoConfig State = iota
	ConfigActive
)

func (s State) String() string {
	if s == ConfigActive {
		return "ConfigActive"
	}
	return "NoConfig"
}

// Lister produces the directory view below a prefix
type Lister interface {
	List(ctx context.Context, prefix string) ([]models.ObjectEntry, error)
}

// Snapshot is a copy of the session state for rendering
type Snapshot struct {
	State       State
	ConfigID    string
	CurrentPath string
	Entries     []models.ObjectEntry
	Error       string
}

// CanGoUp reports whether the ".." entry should be shown
func (s Snapshot) CanGoUp() bool {
	_, ok := ParentPath(s.CurrentPath)
	return s.State == ConfigActive && ok
}

// Target is what an object operation needs from the session, read under
// one lock so the configuration, its client and the path always agree.
type Target struct {
	ConfigID string
	Path     string
	Lister   Lister
}

// Session is the browsing state of one active configuration. Every listing
// request takes a generation token; a response whose token is no longer
// current is dropped instead of overwriting newer state. The epoch changes
// only on reset and identifies one activation.
type Session struct {
	mu          sync.Mutex
	state       State
	configID    string
	lister      Lister
	currentPath string
	entries     []models.ObjectEntry
	errMsg      string
	generation  uint64
	epoch       uint64
}

func NewSession() *Session {
	return &Session{}
}

// reset returns to NoConfig; caller holds s.mu
func (s *Session) reset() {
	s.generation++
	s.epoch++
	s.state = NoConfig
	s.configID = ""
	s.lister = nil
	s.currentPath = ""
	s.entries = nil
	s.errMsg = ""
}

// Activate switches to configID and lists the root
func (s *Session) Activate(ctx context.Context, configID string, lister Lister) error {
	return s.Enter(ctx, s.Begin(configID, lister))
}

// Begin switches to configID without listing and returns the new epoch
func (s *Session) Begin(configID string, lister Lister) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.state = ConfigActive
	s.configID = configID
	s.lister = lister
	return s.epoch
}

// Enter lists the root for the activation identified by epoch. If another
// activation or a reset happened since, ErrStaleListing is returned.
func (s *Session) Enter(ctx context.Context, epoch uint64) error {
	_, err := s.navigate(ctx, "", epoch)
	return err
}

// Deactivate is a full reset: path, entries and error are cleared
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Fail resets the session and records msg for the error banner, but only if
// configID is still the one being browsed.
func (s *Session) Fail(configID, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configID != configID {
		return false
	}
	s.reset()
	s.errMsg = msg
	return true
}

// SetError records a banner message without changing state
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

// Navigate lists path and makes it current. On failure the current path is
// left alone and the error is returned.
func (s *Session) Navigate(ctx context.Context, path string) error {
	_, err := s.navigate(ctx, path, 0)
	return err
}

// Visit is Navigate that also reports the epoch the listing ran in
func (s *Session) Visit(ctx context.Context, path string) (uint64, error) {
	return s.navigate(ctx, path, 0)
}

// navigate lists path; a non-zero epoch pins the listing to one activation
func (s *Session) navigate(ctx context.Context, path string, epoch uint64) (uint64, error) {
	s.mu.Lock()
	if epoch != 0 && epoch != s.epoch {
		s.mu.Unlock()
		return epoch, ErrStaleListing
	}
	if s.state == NoConfig {
		current := s.epoch
		s.mu.Unlock()
		return current, ErrNoConfig
	}
	s.generation++
	gen := s.generation
	epoch = s.epoch
	lister := s.lister
	s.mu.Unlock()

	entries, err := lister.List(ctx, path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return epoch, ErrStaleListing
	}
	if err != nil {
		return epoch, err
	}
	s.currentPath = path
	s.entries = entries
	s.errMsg = ""
	return epoch, nil
}

// Refresh lists the current path again
func (s *Session) Refresh(ctx context.Context) error {
	return s.Navigate(ctx, s.CurrentPath())
}

// Up navigates to the parent of the current path
func (s *Session) Up(ctx context.Context) error {
	parent, ok := ParentPath(s.CurrentPath())
	if !ok {
		return ErrAtRoot
	}
	return s.Navigate(ctx, parent)
}

// Target returns the active configuration, its client and the current path
func (s *Session) Target() (Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == NoConfig {
		return Target{}, ErrNoConfig
	}
	return Target{ConfigID: s.configID, Path: s.currentPath, Lister: s.lister}, nil
}

// Epoch identifies the current activation
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPath
}

func (s *Session) ConfigID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]models.ObjectEntry, len(s.entries))
	copy(entries, s.entries)
	return Snapshot{
		State:       s.state,
		ConfigID:    s.configID,
		CurrentPath: s.currentPath,
		Entries:     entries,
		Error:       s.errMsg,
	}
}
