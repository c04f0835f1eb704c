package ui

import (
	"bytes"
	"embed"
	"fmt"
	"github.com/ZertGraf/userboard/internal/domain"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/userlist.html", "templates/shell.html"))

const (
	// RowBackgroundAlternate is used for even user ids.
	RowBackgroundAlternate = "#f9f9f9"
	// RowBackgroundBase is used for odd user ids.
	RowBackgroundBase = "white"

	ReloadAction  = "/reload"
	RefetchAction = "/refetch"
)

// RowBackground picks the zebra background of a table row by id parity.
func RowBackground(id int) string {
	if id%2 == 0 {
		return RowBackgroundAlternate
	}
	return RowBackgroundBase
}

type row struct {
	ID         int
	Name       string
	Email      string
	Phone      string
	Background template.CSS
}

type userListView struct {
	Loading     bool
	Failed      bool
	Loaded      bool
	Error       string
	RetryAction string
	Rows        []row
}

// RenderUserList renders the users component for state. retryAction is the
// form target of the error panel button.
func RenderUserList(state domain.State, retryAction string) (template.HTML, error) {
	view := userListView{
		Loading:     !state.Status.Settled(),
		Failed:      state.Status == domain.StatusError && state.Error != "",
		Loaded:      state.Status == domain.StatusSuccess,
		Error:       state.Error,
		RetryAction: retryAction,
	}
	if view.Loaded {
		view.Rows = make([]row, 0, len(state.Users))
		for _, u := range state.Users {
			view.Rows = append(view.Rows, row{
				ID:         u.ID,
				Name:       u.Name,
				Email:      u.Email,
				Phone:      u.Phone,
				Background: template.CSS(RowBackground(u.ID)),
			})
		}
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "userlist", view); err != nil {
		return "", fmt.Errorf("render user list: %w", err)
	}
	return template.HTML(buf.String()), nil
}
