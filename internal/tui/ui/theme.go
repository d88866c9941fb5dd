package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/freechat/internal/status"
	intsync "github.com/matheus3301/freechat/internal/sync"
)

// Theme holds the colors used by every view.
type Theme struct {
	Bg     tcell.Color
	Fg     tcell.Color
	Muted  tcell.Color
	Border tcell.Color
	Title  tcell.Color
	Accent tcell.Color

	HeaderFg tcell.Color
	HeaderBg tcell.Color
	CursorFg tcell.Color
	CursorBg tcell.Color

	TrailFg    tcell.Color
	TrailBg    tcell.Color
	TrailTopBg tcell.Color
	Key        tcell.Color
	NumericKey tcell.Color

	Own  tcell.Color
	Peer tcell.Color
	Read tcell.Color

	Live    tcell.Color
	Pending tcell.Color
	Failed  tcell.Color

	FlashInfo    tcell.Color
	FlashWarn    tcell.Color
	FlashErr     tcell.Color
	PromptBorder tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		Bg:     tcell.ColorBlack,
		Fg:     tcell.ColorLightGray,
		Muted:  tcell.ColorGray,
		Border: tcell.ColorSteelBlue,
		Title:  tcell.ColorGold,
		Accent: tcell.ColorPapayaWhip,

		HeaderFg: tcell.ColorWhite,
		HeaderBg: tcell.ColorBlack,
		CursorFg: tcell.ColorBlack,
		CursorBg: tcell.ColorMediumTurquoise,

		TrailFg:    tcell.ColorBlack,
		TrailBg:    tcell.ColorMediumTurquoise,
		TrailTopBg: tcell.ColorGold,
		Key:        tcell.ColorSteelBlue,
		NumericKey: tcell.ColorOrchid,

		Own:  tcell.ColorMediumTurquoise,
		Peer: tcell.ColorLightSalmon,
		Read: tcell.ColorDeepSkyBlue,

		Live:    tcell.ColorLimeGreen,
		Pending: tcell.ColorOrange,
		Failed:  tcell.ColorOrangeRed,

		FlashInfo:    tcell.ColorNavajoWhite,
		FlashWarn:    tcell.ColorOrange,
		FlashErr:     tcell.ColorOrangeRed,
		PromptBorder: tcell.ColorSteelBlue,
	}
}

// SyncColor is the badge color for a sync state.
func (t *Theme) SyncColor(s status.State) tcell.Color {
	switch s {
	case intsync.Live:
		return t.Live
	case intsync.Loading, intsync.Reconnecting:
		return t.Pending
	case intsync.Failed:
		return t.Failed
	}
	return t.Muted
}

// Tag returns c as a tview color tag value.
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
