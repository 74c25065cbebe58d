package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds the TUI palette: chrome colors plus the colors that carry
// meaning (connection state, delivery status, flash level).
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	PromptBorderColor tcell.Color

	StateLiveColor       tcell.Color
	StateConnectingColor tcell.Color
	StateDegradedColor   tcell.Color
	StateDownColor       tcell.Color

	PendingColor   tcell.Color
	SentColor      tcell.Color
	DeliveredColor tcell.Color
	FailedColor    tcell.Color

	FlashInfoColor tcell.Color
	FlashWarnColor tcell.Color
	FlashErrColor  tcell.Color
}

// DefaultTheme returns a k9s-inspired dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorLightSteelBlue,
		BorderColor:       tcell.ColorSteelBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorMediumTurquoise,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorGold,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorMediumTurquoise,
		MenuKeyColor:      tcell.ColorSteelBlue,
		NumericKeyColor:   tcell.ColorOrchid,
		TitleColor:        tcell.ColorOrchid,
		CounterColor:      tcell.ColorGold,
		PromptBorderColor: tcell.ColorSteelBlue,

		StateLiveColor:       tcell.ColorLimeGreen,
		StateConnectingColor: tcell.ColorYellow,
		StateDegradedColor:   tcell.ColorOrange,
		StateDownColor:       tcell.ColorRed,

		PendingColor:   tcell.ColorGray,
		SentColor:      tcell.ColorLightSteelBlue,
		DeliveredColor: tcell.ColorDeepSkyBlue,
		FailedColor:    tcell.ColorOrangeRed,

		FlashInfoColor: tcell.ColorNavajoWhite,
		FlashWarnColor: tcell.ColorOrange,
		FlashErrColor:  tcell.ColorOrangeRed,
	}
}

// StateColor maps a connection state name to its color. Unknown states
// read as down.
func (t *Theme) StateColor(state string) tcell.Color {
	switch state {
	case "LIVE":
		return t.StateLiveColor
	case "CONNECTING":
		return t.StateConnectingColor
	case "DEGRADED":
		return t.StateDegradedColor
	}
	return t.StateDownColor
}

// StatusColor maps an outbound delivery status to its color.
func (t *Theme) StatusColor(status string) tcell.Color {
	switch status {
	case "pending":
		return t.PendingColor
	case "delivered":
		return t.DeliveredColor
	case "failed":
		return t.FailedColor
	}
	return t.SentColor
}

// FlashColor maps a flash level to its color.
func (t *Theme) FlashColor(level FlashLevel) tcell.Color {
	switch level {
	case FlashWarn:
		return t.FlashWarnColor
	case FlashErr:
		return t.FlashErrColor
	}
	return t.FlashInfoColor
}

// Hex formats c as a tview color tag value.
func Hex(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
