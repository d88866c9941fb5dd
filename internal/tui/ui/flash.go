package ui

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/freechat/internal/errs"
	"github.com/rivo/tview"
)

// Level is the severity of a flash note.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelErr
)

var lifetimes = map[Level]time.Duration{
	LevelInfo: 4 * time.Second,
	LevelWarn: 6 * time.Second,
	LevelErr:  10 * time.Second,
}

// Note is the message shown in the flash bar.
type Note struct {
	Text    string
	Level   Level
	Repeat  int // times the same text was raised in a row
	Sticky  bool
	Expires time.Time
}

// Flash holds the current note. Engine events arrive from the bus watcher
// while key handlers run on the UI goroutine, so it is locked.
type Flash struct {
	mu      sync.Mutex
	current Note
	now     func() time.Time
}

// NewFlash creates an empty flash.
func NewFlash() *Flash {
	return &Flash{now: time.Now}
}

// Info shows msg briefly.
func (f *Flash) Info(msg string) { f.raise(msg, LevelInfo, false) }

// Sticky shows msg as an error until something else replaces it.
func (f *Flash) Sticky(msg string) { f.raise(msg, LevelErr, true) }

// Report shows err with a severity derived from its kind. Transient network
// failures and rejected input are warnings; everything else is an error.
func (f *Flash) Report(err error) {
	if err == nil {
		return
	}
	level := LevelErr
	switch {
	case errs.IsTransient(err), errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrBusy):
		level = LevelWarn
	}
	f.raise(err.Error(), level, false)
}

func (f *Flash) raise(text string, level Level, sticky bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	repeat := 1
	if f.current.Text == text && (f.current.Sticky || now.Before(f.current.Expires)) {
		repeat = f.current.Repeat + 1
	}
	f.current = Note{Text: text, Level: level, Repeat: repeat, Sticky: sticky, Expires: now.Add(lifetimes[level])}
}

// Current returns the note on display, if any.
func (f *Flash) Current() (Note, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.current
	if n.Text == "" || (!n.Sticky && f.now().After(n.Expires)) {
		return Note{}, false
	}
	return n, true
}

// FlashBar renders the current note on one line.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates an empty bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	return &FlashBar{TextView: tv, theme: theme}
}

// Update shows n, or clears the bar when ok is false.
func (fb *FlashBar) Update(n Note, ok bool) {
	fb.Clear()
	if !ok {
		return
	}
	color := map[Level]string{
		LevelInfo: Tag(fb.theme.FlashInfo),
		LevelWarn: Tag(fb.theme.FlashWarn),
		LevelErr:  Tag(fb.theme.FlashErr),
	}[n.Level]
	text := tview.Escape(n.Text)
	if n.Repeat > 1 {
		text += fmt.Sprintf(" (x%d)", n.Repeat)
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-]", color, text)
}
