package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/ZertGraf/userboard/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchResult struct {
	users []domain.User
	err   error
}

// scriptedFetcher answers each call with the next scripted result. A call
// blocks until its result is released when gate is set.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	gate    chan struct{}
}

func (f *scriptedFetcher) FetchUsers(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &upstream.TransportError{Err: ctx.Err()}
		}
	}
	if i >= len(f.results) {
		return nil, errors.New("no scripted result")
	}
	return f.results[i].users, f.results[i].err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingArchiver struct {
	mu    sync.Mutex
	saved [][]domain.User
	err   error
}

func (a *recordingArchiver) Save(_ context.Context, users []domain.User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, users)
	return a.err
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []domain.FetchStatus
}

func (r *statusRecorder) observe(s domain.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s.Status)
}

func (r *statusRecorder) Statuses() []domain.FetchStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FetchStatus(nil), r.statuses...)
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete")
	}
}

var ana = domain.User{ID: 1, Name: "Ana", Email: "a@x.com", Phone: "111"}

func TestUserList_InitialStateIsIdle(t *testing.T) {
	l := NewUserList(&scriptedFetcher{}, nil, logger.Discard())
	defer l.Close()

	s := l.State()
	assert.Equal(t, domain.StatusIdle, s.Status)
	assert.Empty(t, s.Users)
	assert.Empty(t, s.Error)
	assert.Zero(t, s.Generation)
}

func TestUserList_ActivateSuccess(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{users: []domain.User{ana}}}, gate: make(chan struct{})}
	archiver := &recordingArchiver{}
	rec := &statusRecorder{}
	l := NewUserList(fetcher, archiver, logger.Discard(), WithObserver(rec.observe))
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)

	// loading is set synchronously
	s := l.State()
	assert.Equal(t, domain.StatusLoading, s.Status)
	assert.NotEmpty(t, s.ActivationID)
	assert.Equal(t, uint64(1), s.Generation)

	close(fetcher.gate)
	wait(t, done)

	s = l.State()
	assert.Equal(t, domain.StatusSuccess, s.Status)
	assert.Empty(t, s.Error)
	assert.Equal(t, []domain.User{ana}, s.Users)
	assert.Equal(t, []domain.FetchStatus{domain.StatusLoading, domain.StatusSuccess}, rec.Statuses())
	assert.Equal(t, 1, fetcher.Calls())
	assert.Equal(t, [][]domain.User{{ana}}, archiver.saved)
}

func TestUserList_ActivateTransportFailure(t *testing.T) {
	var logs bytes.Buffer
	log, err := logger.New(&logger.Config{Level: "info", Format: "json", Output: &logs})
	require.NoError(t, err)

	fetcher := &scriptedFetcher{results: []fetchResult{{err: &upstream.TransportError{StatusCode: 500}}}}
	rec := &statusRecorder{}
	l := NewUserList(fetcher, nil, log, WithObserver(rec.observe))
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)
	wait(t, done)

	s := l.State()
	assert.Equal(t, domain.StatusError, s.Status)
	assert.Equal(t, "API error: request failed with status code 500", s.Error)
	assert.Empty(t, s.Users)
	assert.Equal(t, []domain.FetchStatus{domain.StatusLoading, domain.StatusError}, rec.Statuses())
	assert.Contains(t, logs.String(), "failed to fetch users")
	assert.Contains(t, logs.String(), "request failed with status code 500")
}

func TestUserList_ActivateUnclassifiedFailure(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{err: errors.New("unexpected end of JSON input")}}}
	l := NewUserList(fetcher, nil, logger.Discard())
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)
	wait(t, done)

	s := l.State()
	assert.Equal(t, domain.StatusError, s.Status)
	assert.Equal(t, domain.UnknownFetchErrorText, s.Error)
}

func TestUserList_ActivateIsOneShot(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{users: []domain.User{ana}}}}
	l := NewUserList(fetcher, nil, logger.Discard())
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)
	wait(t, done)

	_, err = l.Activate(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyActivated)

	_, err = l.Refetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrRefetchDisabled)

	assert.Equal(t, 1, fetcher.Calls())
	assert.Equal(t, domain.StatusSuccess, l.State().Status)
}

func TestUserList_ScopedRefetchFailureKeepsUsers(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{users: []domain.User{ana, {ID: 2, Name: "Bia", Email: "b@x.com", Phone: "222"}}},
		{err: &upstream.TransportError{StatusCode: 503}},
	}}
	rec := &statusRecorder{}
	l := NewUserList(fetcher, nil, logger.Discard(), WithScopedRefetch(), WithObserver(rec.observe))
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)
	wait(t, done)
	require.Len(t, l.State().Users, 2)

	done, err = l.Refetch(context.Background())
	require.NoError(t, err)
	wait(t, done)

	s := l.State()
	assert.Equal(t, domain.StatusError, s.Status)
	assert.Equal(t, "API error: request failed with status code 503", s.Error)
	assert.Len(t, s.Users, 2)
	assert.Equal(t, uint64(2), s.Generation)
	assert.Equal(t, []domain.FetchStatus{
		domain.StatusLoading, domain.StatusSuccess,
		domain.StatusLoading, domain.StatusError,
	}, rec.Statuses())
}

func TestUserList_ScopedRefetchRejectedWhileLoading(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{users: []domain.User{ana}}}, gate: make(chan struct{})}
	l := NewUserList(fetcher, nil, logger.Discard(), WithScopedRefetch())
	defer l.Close()

	_, err := l.Refetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	done, err := l.Activate(context.Background())
	require.NoError(t, err)

	_, err = l.Refetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrFetchInFlight)

	close(fetcher.gate)
	wait(t, done)
	assert.Equal(t, 1, fetcher.Calls())
}

func TestUserList_CloseCancelsInFlightAndDropsCompletion(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{users: []domain.User{ana}}}, gate: make(chan struct{})}
	rec := &statusRecorder{}
	l := NewUserList(fetcher, nil, logger.Discard(), WithObserver(rec.observe))

	done, err := l.Activate(context.Background())
	require.NoError(t, err)

	l.Close()
	wait(t, done)

	// the cancelled fetch never reaches error: the completion is discarded
	assert.Equal(t, domain.StatusLoading, l.State().Status)
	assert.Equal(t, []domain.FetchStatus{domain.StatusLoading}, rec.Statuses())

	_, err = l.Activate(context.Background())
	assert.ErrorIs(t, err, domain.ErrComponentClosed)
	_, err = l.Refetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrComponentClosed)
}

func TestUserList_StaleGenerationIsDiscarded(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{users: []domain.User{ana}}}}
	l := NewUserList(fetcher, nil, logger.Discard(), WithScopedRefetch())
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)
	wait(t, done)

	// a completion from generation 0 arrives after generation 1 settled
	l.complete(0, "stale", nil, errors.New("late failure"))

	s := l.State()
	assert.Equal(t, domain.StatusSuccess, s.Status)
	assert.Empty(t, s.Error)
	assert.Equal(t, []domain.User{ana}, s.Users)
}

func TestUserList_ArchiveFailureDoesNotChangeState(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{users: []domain.User{ana}}}}
	archiver := &recordingArchiver{err: errors.New("db down")}
	l := NewUserList(fetcher, archiver, logger.Discard())
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)
	wait(t, done)

	assert.Equal(t, domain.StatusSuccess, l.State().Status)
	assert.Len(t, archiver.saved, 1)
}

func TestUserList_StateIsACopy(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{users: []domain.User{ana}}}}
	l := NewUserList(fetcher, nil, logger.Discard())
	defer l.Close()

	done, err := l.Activate(context.Background())
	require.NoError(t, err)
	wait(t, done)

	s := l.State()
	s.Users[0].Name = "changed"
	assert.Equal(t, "Ana", l.State().Users[0].Name)
}

// Scenarios against a real upstream client and a mock endpoint.
func TestUserList_WithUpstreamClient(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus domain.FetchStatus
		wantError  string
		wantUsers  []domain.User
	}{
		{
			name: "single user",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"id":1,"name":"Ana","email":"a@x.com","phone":"111"}]`))
			},
			wantStatus: domain.StatusSuccess,
			wantUsers:  []domain.User{ana},
		},
		{
			name: "http 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStatus: domain.StatusError,
			wantError:  "API error: request failed with status code 500",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"id":`))
			},
			wantStatus: domain.StatusError,
			wantError:  domain.UnknownFetchErrorText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client, err := upstream.New(&upstream.Config{URL: srv.URL, Timeout: 2 * time.Second}, logger.Discard())
			require.NoError(t, err)

			l := NewUserList(client, nil, logger.Discard())
			defer l.Close()

			done, err := l.Activate(context.Background())
			require.NoError(t, err)
			wait(t, done)

			s := l.State()
			assert.Equal(t, tt.wantStatus, s.Status)
			assert.Equal(t, tt.wantError, s.Error)
			assert.Equal(t, tt.wantUsers, s.Users)
		})
	}
}
