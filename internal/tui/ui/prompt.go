package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what the prompt input drives.
type PromptMode int

const (
	// PromptCommand submits a ':' command on Enter.
	PromptCommand PromptMode = iota
	// PromptSearch filters conversations and searches users as the user types.
	PromptSearch
)

// Prompt is the command and search input bar.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	onSubmit func(mode PromptMode, text string)
	onChange func(mode PromptMode, text string)
	onCancel func(mode PromptMode)
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorder)
	input.SetBackgroundColor(theme.Bg)
	input.SetFieldBackgroundColor(theme.Bg)
	input.SetFieldTextColor(theme.Fg)
	input.SetLabelColor(theme.Key)

	p := &Prompt{InputField: input}

	input.SetChangedFunc(func(text string) {
		if p.onChange != nil {
			p.onChange(p.mode, text)
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			if p.onSubmit != nil {
				p.onSubmit(p.mode, p.GetText())
			}
		case tcell.KeyEscape:
			if p.onCancel != nil {
				p.onCancel(p.mode)
			}
		}
	})

	return p
}

// SetOnSubmit sets the Enter callback.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnChange sets the callback fired on every edit.
func (p *Prompt) SetOnChange(fn func(mode PromptMode, text string)) {
	p.onChange = fn
}

// SetOnCancel sets the Esc callback.
func (p *Prompt) SetOnCancel(fn func(mode PromptMode)) {
	p.onCancel = fn
}

// Activate switches the prompt to mode and seeds it with text.
func (p *Prompt) Activate(mode PromptMode, text string) {
	p.mode = mode
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptSearch:
		p.SetLabel("/")
		p.SetTitle(" Search conversations and people ")
	}
	// Seed without echoing the text back through onChange.
	fn := p.onChange
	p.onChange = nil
	p.SetText(text)
	p.onChange = fn
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}
