package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"github.com/ZertGraf/userboard/internal/service"
	"github.com/ZertGraf/userboard/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) ([]domain.User, error)
}

func (f *countingFetcher) FetchUsers(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call)
}

func (f *countingFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitSettled(t *testing.T, h *Host) {
	t.Helper()
	select {
	case <-h.Settled():
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not settle")
	}
}

func newTestHost(t *testing.T, fetcher service.UsersFetcher, created *[]Component, opts ...service.Option) *Host {
	t.Helper()
	h := NewHost(HostConfig{LoadingRefresh: time.Second}, func() Component {
		l := service.NewUserList(fetcher, nil, logger.Discard(), opts...)
		if created != nil {
			*created = append(*created, l)
		}
		return l
	}, logger.Discard())
	t.Cleanup(h.Unmount)
	return h
}

var ana = domain.User{ID: 1, Name: "Ana", Email: "a@x.com", Phone: "111"}

func TestHost_MountRendersUsersIntoMountElement(t *testing.T) {
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) { return []domain.User{ana}, nil }}
	h := newTestHost(t, fetcher, nil)

	require.NoError(t, h.Mount(context.Background()))
	waitSettled(t, h)

	page, err := h.Page()
	require.NoError(t, err)

	out := string(page)
	assert.Contains(t, out, `<div id="root"><div class="App">`)
	assert.Equal(t, 1, strings.Count(out, `class="users-row"`))
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Class 32 PE - C1 - ID82")
	assert.NotContains(t, out, `http-equiv="refresh"`)
	assert.Equal(t, 1, h.Mounts())
}

func TestHost_MountOnlyOnce(t *testing.T) {
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) { return nil, nil }}
	h := newTestHost(t, fetcher, nil)

	require.NoError(t, h.Mount(context.Background()))
	assert.ErrorIs(t, h.Mount(context.Background()), domain.ErrAlreadyMounted)
	assert.Equal(t, 1, h.Mounts())
}

func TestHost_MountMissingElement(t *testing.T) {
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) { return nil, nil }}
	h := NewHost(HostConfig{
		Skeleton: []byte(`<!DOCTYPE html><html><body><div id="app"></div></body></html>`),
	}, func() Component {
		return service.NewUserList(fetcher, nil, logger.Discard())
	}, logger.Discard())

	err := h.Mount(context.Background())
	assert.ErrorIs(t, err, domain.ErrMountNotFound)
	assert.Zero(t, h.Mounts())
	assert.Zero(t, fetcher.Calls())

	_, err = h.Page()
	assert.ErrorIs(t, err, domain.ErrNotMounted)
}

func TestHost_MountAmbiguousElement(t *testing.T) {
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) { return nil, nil }}
	h := NewHost(HostConfig{
		Skeleton: []byte(`<html><body><div id="root"></div><p id="root"></p></body></html>`),
	}, func() Component {
		return service.NewUserList(fetcher, nil, logger.Discard())
	}, logger.Discard())

	assert.ErrorIs(t, h.Mount(context.Background()), domain.ErrMountAmbiguous)
}

func TestHost_CustomMountID(t *testing.T) {
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) { return []domain.User{ana}, nil }}
	h := NewHost(HostConfig{
		Skeleton: []byte(`<html><head></head><body><main id="app"></main></body></html>`),
		MountID:  "app",
	}, func() Component {
		return service.NewUserList(fetcher, nil, logger.Discard())
	}, logger.Discard())
	t.Cleanup(h.Unmount)

	require.NoError(t, h.Mount(context.Background()))
	waitSettled(t, h)

	page, err := h.Page()
	require.NoError(t, err)
	assert.Contains(t, string(page), `<main id="app"><div class="App">`)
}

func TestHost_LoadingPageRefreshes(t *testing.T) {
	release := make(chan struct{})
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) {
		<-release
		return []domain.User{ana}, nil
	}}
	h := newTestHost(t, fetcher, nil)

	require.NoError(t, h.Mount(context.Background()))

	page, err := h.Page()
	require.NoError(t, err)
	assert.Contains(t, string(page), "Loading data...")
	assert.Contains(t, string(page), `<meta http-equiv="refresh" content="1"/>`)

	close(release)
	waitSettled(t, h)
}

// A reload runs the whole mount lifecycle again: a new component is created
// and activated, the old one is torn down, and the mount count grows.
func TestHost_ReloadRemounts(t *testing.T) {
	fetcher := &countingFetcher{fn: func(call int) ([]domain.User, error) {
		if call == 1 {
			return nil, &upstream.TransportError{StatusCode: 500}
		}
		return []domain.User{ana}, nil
	}}
	var created []Component
	h := newTestHost(t, fetcher, &created)

	require.NoError(t, h.Mount(context.Background()))
	waitSettled(t, h)

	state, err := h.State()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, state.Status)

	page, err := h.Page()
	require.NoError(t, err)
	assert.Contains(t, string(page), `action="/reload"`)

	require.NoError(t, h.Reload(context.Background()))
	waitSettled(t, h)

	assert.Equal(t, 2, h.Mounts())
	assert.Equal(t, 2, fetcher.Calls())
	require.Len(t, created, 2)
	assert.NotSame(t, created[0], created[1])

	// the torn-down component refuses further work
	_, err = created[0].Activate(context.Background())
	assert.ErrorIs(t, err, domain.ErrComponentClosed)

	state, err = h.State()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, state.Status)
	assert.Equal(t, uint64(1), state.Generation)
}

func TestHost_RefetchReusesComponent(t *testing.T) {
	fetcher := &countingFetcher{fn: func(call int) ([]domain.User, error) {
		if call == 1 {
			return []domain.User{ana}, nil
		}
		return nil, errors.New("bad payload")
	}}
	var created []Component
	h := newTestHost(t, fetcher, &created, service.WithScopedRefetch())

	require.NoError(t, h.Mount(context.Background()))
	waitSettled(t, h)

	require.NoError(t, h.Refetch(context.Background()))
	waitSettled(t, h)

	assert.Equal(t, 1, h.Mounts())
	assert.Len(t, created, 1)

	state, err := h.State()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, state.Status)
	assert.Equal(t, domain.UnknownFetchErrorText, state.Error)
	assert.Equal(t, []domain.User{ana}, state.Users)

	page, err := h.Page()
	require.NoError(t, err)
	assert.Contains(t, string(page), `action="/refetch"`)
}

func TestHost_RefetchDisabledInReloadMode(t *testing.T) {
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) { return []domain.User{ana}, nil }}
	h := newTestHost(t, fetcher, nil)

	require.NoError(t, h.Mount(context.Background()))
	waitSettled(t, h)

	assert.ErrorIs(t, h.Refetch(context.Background()), domain.ErrRefetchDisabled)
	assert.Equal(t, 1, fetcher.Calls())
}

func TestHost_ReloadBeforeMount(t *testing.T) {
	fetcher := &countingFetcher{fn: func(int) ([]domain.User, error) { return nil, nil }}
	h := newTestHost(t, fetcher, nil)

	assert.ErrorIs(t, h.Reload(context.Background()), domain.ErrNotMounted)
	assert.ErrorIs(t, h.Refetch(context.Background()), domain.ErrNotMounted)
}
