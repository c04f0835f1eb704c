package service

import (
	"context"
	"fmt"
	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/ZertGraf/userboard/internal/upstream"
	"github.com/google/uuid"
	"sync"
	"time"
)

// UsersFetcher performs the single outbound users request.
type UsersFetcher interface {
	FetchUsers(ctx context.Context) ([]domain.User, error)
}

// UsersArchiver receives every successfully fetched user set.
type UsersArchiver interface {
	Save(ctx context.Context, users []domain.User) error
}

type Option func(*UserList)

// WithScopedRefetch allows Refetch from success or error. Without it the
// component is one-shot and recovery is a full reload.
func WithScopedRefetch() Option {
	return func(l *UserList) {
		l.scoped = true
	}
}

// WithObserver registers fn to receive the state after every transition.
// fn is called with the component lock held and must not call back into it.
func WithObserver(fn func(domain.State)) Option {
	return func(l *UserList) {
		l.observers = append(l.observers, fn)
	}
}

// WithArchiveTimeout bounds how long a snapshot save may take.
func WithArchiveTimeout(d time.Duration) Option {
	return func(l *UserList) {
		l.archiveTimeout = d
	}
}

// UserList owns the fetch lifecycle of the users table:
// idle -> loading -> success | error.
type UserList struct {
	fetcher  UsersFetcher
	archiver UsersArchiver
	logger   *logger.Logger

	scoped         bool
	archiveTimeout time.Duration
	observers      []func(domain.State)

	// ctx is cancelled by Close and parents every fetch
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  domain.State
	closed bool
	wg     sync.WaitGroup
}

func NewUserList(fetcher UsersFetcher, archiver UsersArchiver, logger *logger.Logger, opts ...Option) *UserList {
	ctx, cancel := context.WithCancel(context.Background())

	l := &UserList{
		fetcher:        fetcher,
		archiver:       archiver,
		logger:         logger.Component("service/userlist"),
		archiveTimeout: 10 * time.Second,
		ctx:            ctx,
		cancel:         cancel,
		state:          domain.State{Status: domain.StatusIdle},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Activate starts the one fetch of this component. The state is loading when
// Activate returns; the returned channel closes once the outcome is applied
// or discarded.
func (l *UserList) Activate(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, domain.ErrComponentClosed
	}
	if l.state.Status != domain.StatusIdle {
		return nil, domain.ErrAlreadyActivated
	}

	return l.startLocked(ctx)
}

// Refetch re-runs the fetch on this component without touching anything else.
// Users from an earlier success stay visible to State until a new success replaces them.
func (l *UserList) Refetch(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, domain.ErrComponentClosed
	}
	if !l.scoped {
		return nil, domain.ErrRefetchDisabled
	}
	switch l.state.Status {
	case domain.StatusLoading:
		return nil, domain.ErrFetchInFlight
	case domain.StatusIdle:
		return nil, fmt.Errorf("refetch before activation: %w", domain.ErrInvalidTransition)
	}

	return l.startLocked(ctx)
}

// Close cancels any in-flight request. Completions arriving afterwards are dropped.
func (l *UserList) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

func (l *UserList) State() domain.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *UserList) ScopedRefetch() bool {
	return l.scoped
}

func (l *UserList) startLocked(ctx context.Context) (<-chan struct{}, error) {
	next := l.state
	next.Status = domain.StatusLoading
	next.Error = ""
	next.Generation++
	next.ActivationID = uuid.NewString()
	if err := l.transitionLocked(next); err != nil {
		return nil, err
	}

	// cancelled by Close, never by the caller's ctx
	fetchCtx, cancel := context.WithCancel(l.ctx)

	done := make(chan struct{})
	gen := next.Generation
	activationID := next.ActivationID
	l.logger.DebugContext(ctx, "fetching users", "generation", gen, "activation_id", activationID)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(done)
		defer cancel()

		users, err := l.fetcher.FetchUsers(fetchCtx)
		l.complete(gen, activationID, users, err)
	}()

	return done, nil
}

func (l *UserList) complete(gen uint64, activationID string, users []domain.User, fetchErr error) {
	l.mu.Lock()

	if l.closed || gen != l.state.Generation {
		l.mu.Unlock()
		l.logger.Debug("discarding stale users fetch",
			"generation", gen,
			"current_generation", l.State().Generation,
			"activation_id", activationID)
		return
	}

	next := l.state
	if fetchErr != nil {
		next.Status = domain.StatusError
		next.Error = classify(fetchErr)
	} else {
		next.Status = domain.StatusSuccess
		next.Error = ""
		next.Users = users
	}
	if err := l.transitionLocked(next); err != nil {
		l.mu.Unlock()
		l.logger.Error("unexpected transition on fetch completion", "error", err)
		return
	}
	l.mu.Unlock()

	if fetchErr != nil {
		l.logger.Error("failed to fetch users",
			"error", fetchErr,
			"generation", gen,
			"activation_id", activationID)
		return
	}

	l.logger.Info("users loaded", "count", len(users), "generation", gen, "activation_id", activationID)
	l.archive(users)
}

func (l *UserList) archive(users []domain.User) {
	if l.archiver == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), l.archiveTimeout)
	defer cancel()

	if err := l.archiver.Save(ctx, users); err != nil {
		l.logger.Warn("failed to archive users snapshot", "error", err, "count", len(users))
	}
}

func (l *UserList) transitionLocked(next domain.State) error {
	if !l.state.Status.CanTransition(next.Status) {
		return fmt.Errorf("%s -> %s: %w", l.state.Status, next.Status, domain.ErrInvalidTransition)
	}
	l.state = next

	snapshot := l.snapshotLocked()
	for _, fn := range l.observers {
		fn(snapshot)
	}
	return nil
}

func (l *UserList) snapshotLocked() domain.State {
	s := l.state
	if s.Users != nil {
		s.Users = append([]domain.User(nil), s.Users...)
	}
	return s
}

// classify turns a fetch failure into the message shown on the error panel.
func classify(err error) string {
	if upstream.IsTransport(err) {
		return domain.TransportErrorPrefix + upstream.TransportMessage(err)
	}
	return domain.UnknownFetchErrorText
}
