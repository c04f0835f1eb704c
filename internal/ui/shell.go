package ui

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ZertGraf/userboard/internal/domain"
	"html/template"
)

// Component is the stateful users list mounted inside the shell.
type Component interface {
	Activate(ctx context.Context) (<-chan struct{}, error)
	Refetch(ctx context.Context) (<-chan struct{}, error)
	State() domain.State
	ScopedRefetch() bool
	Close()
}

// Shell is the application root: the users component followed by the footer.
// It holds no state beyond the component it wraps.
type Shell struct {
	list Component
}

func NewShell(list Component) *Shell {
	return &Shell{list: list}
}

func (s *Shell) List() Component {
	return s.list
}

func (s *Shell) RetryAction() string {
	if s.list.ScopedRefetch() {
		return RefetchAction
	}
	return ReloadAction
}

func (s *Shell) Render() (template.HTML, error) {
	list, err := RenderUserList(s.list.State(), s.RetryAction())
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "shell", struct{ UserList template.HTML }{list}); err != nil {
		return "", fmt.Errorf("render shell: %w", err)
	}
	return template.HTML(buf.String()), nil
}
