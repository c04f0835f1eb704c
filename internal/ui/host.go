package ui

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"github.com/ZertGraf/userboard/internal/domain"
	"github.com/ZertGraf/userboard/internal/pkg/logger"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultMountID = "root"

//go:embed templates/index.html
var DefaultSkeleton []byte

// ComponentFactory creates a fresh users component for every mount.
type ComponentFactory func() Component

type HostConfig struct {
	Skeleton []byte
	MountID  string
	// LoadingRefresh is the meta refresh interval emitted while the list is
	// loading; zero disables it.
	LoadingRefresh time.Duration
}

// Host owns the page skeleton and the mounted application shell.
type Host struct {
	config  HostConfig
	factory ComponentFactory
	logger  *logger.Logger

	mu      sync.Mutex
	shell   *Shell
	settled <-chan struct{}
	mounts  int
}

func NewHost(config HostConfig, factory ComponentFactory, logger *logger.Logger) *Host {
	if config.Skeleton == nil {
		config.Skeleton = DefaultSkeleton
	}
	if config.MountID == "" {
		config.MountID = DefaultMountID
	}
	return &Host{
		config:  config,
		factory: factory,
		logger:  logger.Component("ui/host"),
	}
}

// Mount attaches the application shell to the mount element. It runs once per
// process; a missing mount element is a broken skeleton and the caller should
// treat it as fatal.
func (h *Host) Mount(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell != nil || h.mounts > 0 {
		return domain.ErrAlreadyMounted
	}
	if _, _, err := h.locateMount(); err != nil {
		return err
	}
	return h.mountLocked(ctx)
}

// Reload is a full reload: the current shell is torn down (cancelling any
// in-flight fetch) and the whole mount lifecycle runs again from scratch.
func (h *Host) Reload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell == nil {
		return domain.ErrNotMounted
	}

	h.shell.List().Close()
	h.shell = nil

	h.logger.Info("reloading application", "mounts", h.mounts)
	return h.mountLocked(ctx)
}

// Refetch re-runs the fetch of the mounted component, keeping the shell.
func (h *Host) Refetch(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell == nil {
		return domain.ErrNotMounted
	}

	done, err := h.shell.List().Refetch(ctx)
	if err != nil {
		return err
	}
	h.settled = done
	return nil
}

func (h *Host) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell == nil {
		return
	}
	h.shell.List().Close()
	h.shell = nil
	h.logger.Info("application unmounted")
}

func (h *Host) State() (domain.State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell == nil {
		return domain.State{}, domain.ErrNotMounted
	}
	return h.shell.List().State(), nil
}

// Mounts reports how many times the mount lifecycle has run.
func (h *Host) Mounts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mounts
}

// Settled returns a channel closed when the latest fetch has been applied or discarded.
func (h *Host) Settled() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.settled == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.settled
}

// Page renders the skeleton with the current shell inside the mount element.
func (h *Host) Page() ([]byte, error) {
	h.mu.Lock()
	shell := h.shell
	h.mu.Unlock()

	if shell == nil {
		return nil, domain.ErrNotMounted
	}

	doc, mount, err := h.locateMount()
	if err != nil {
		return nil, err
	}

	content, err := shell.Render()
	if err != nil {
		return nil, err
	}

	nodes, err := html.ParseFragment(strings.NewReader(string(content)), mount)
	if err != nil {
		return nil, fmt.Errorf("parse shell fragment: %w", err)
	}
	for _, n := range nodes {
		mount.AppendChild(n)
	}

	if status := shell.List().State().Status; !status.Settled() && h.config.LoadingRefresh > 0 {
		addRefresh(doc, h.config.LoadingRefresh)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *Host) mountLocked(ctx context.Context) error {
	list := h.factory()
	done, err := list.Activate(ctx)
	if err != nil {
		list.Close()
		return fmt.Errorf("activate user list: %w", err)
	}

	h.shell = NewShell(list)
	h.settled = done
	h.mounts++

	h.logger.Info("application mounted",
		"mount_id", h.config.MountID,
		"mounts", h.mounts,
		"retry_action", h.shell.RetryAction())
	return nil
}

// locateMount parses a fresh copy of the skeleton and returns it together
// with the single element whose id is the mount id.
func (h *Host) locateMount() (*html.Node, *html.Node, error) {
	doc, err := html.Parse(bytes.NewReader(h.config.Skeleton))
	if err != nil {
		return nil, nil, fmt.Errorf("parse host page: %w", err)
	}

	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && attr(n, "id") == h.config.MountID {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	switch len(found) {
	case 0:
		return nil, nil, fmt.Errorf("id %q: %w", h.config.MountID, domain.ErrMountNotFound)
	case 1:
		return doc, found[0], nil
	default:
		return nil, nil, fmt.Errorf("id %q matches %d elements: %w", h.config.MountID, len(found), domain.ErrMountAmbiguous)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func addRefresh(doc *html.Node, every time.Duration) {
	var head *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if head != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Head {
			head = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if head == nil {
		return
	}

	seconds := int(every.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	head.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "meta",
		DataAtom: atom.Meta,
		Attr: []html.Attribute{
			{Key: "http-equiv", Val: "refresh"},
			{Key: "content", Val: strconv.Itoa(seconds)},
		},
	})
}
