package views

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/tui/ui"
	"github.com/rivo/tview"
)

// SearchState is the user search part of a session snapshot.
type SearchState struct {
	Query     string
	Results   []model.User
	Searching bool
	Creating  bool
	Err       error
	MinLength int
}

// SearchView lists the people matching the search box.
type SearchView struct {
	*tview.Table
	theme *ui.Theme
	users []model.User
}

// NewSearchView creates a new people search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.Border)
	results.SetBackgroundColor(theme.Bg)
	results.SetTitle(" People ")
	results.SetTitleColor(theme.Title)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.CursorFg).
		Background(theme.CursorBg))

	return &SearchView{
		Table: results,
		theme: theme,
	}
}

// Name implements ui.Component.
func (sv *SearchView) Name() string { return "People" }

// Hints implements ui.Component.
func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "enter", Description: "Start conversation"},
		{Key: "/", Description: "Edit search"},
		{Key: "esc", Description: "Back"},
	}
}

// Update renders s.
func (sv *SearchView) Update(s SearchState) {
	sv.users = s.Results
	sv.Clear()

	headers := []string{" NAME", " EMAIL"}
	for col, h := range headers {
		sv.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.HeaderFg).
			SetBackgroundColor(sv.theme.HeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1))
	}
	for i, u := range s.Results {
		sv.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(sanitize(u.Name))).SetTextColor(sv.theme.Fg).SetExpansion(1))
		sv.SetCell(i+1, 1, tview.NewTableCell(" "+tview.Escape(u.Email)).SetTextColor(sv.theme.Muted).SetExpansion(1))
	}

	sv.SetTitle(searchTitle(s))
}

func searchTitle(s SearchState) string {
	switch {
	case s.Creating:
		return " People | opening conversation... "
	case s.Err != nil:
		return " People | " + tview.Escape(s.Err.Error()) + " "
	case s.Searching:
		return fmt.Sprintf(" People | searching %q... ", s.Query)
	case utf8.RuneCountInString(strings.TrimSpace(s.Query)) < s.MinLength:
		return fmt.Sprintf(" People | type at least %d characters ", s.MinLength)
	}
	return fmt.Sprintf(" People (%d) ", len(s.Results))
}

// Selected returns the user under the cursor.
func (sv *SearchView) Selected() (model.User, bool) {
	row, _ := sv.GetSelection()
	if row < 1 || row > len(sv.users) {
		return model.User{}, false
	}
	return sv.users[row-1], true
}
