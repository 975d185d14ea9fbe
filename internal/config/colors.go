package config

import (
	"fmt"

	"github.com/derailed/tcell/v2"
)

// Color represents a color in the application
type Color string

const (
	// DefaultColor represents a default color
	DefaultColor Color = "default"

	// TransparentColor represents the terminal bg color
	TransparentColor Color = "-"
)

// Colors tracks multiple colors
type Colors []Color

// Colors converts series string colors to colors
func (c Colors) Colors() []tcell.Color {
	cc := make([]tcell.Color, 0, len(c))
	for _, color := range c {
		cc = append(cc, color.Color())
	}
	return cc
}

// NewColor returns a new color
func NewColor(c string) Color {
	return Color(c)
}

// String returns color as string
func (c Color) String() string {
	if c.isHex() {
		return string(c)
	}
	if c == DefaultColor {
		return "-"
	}
	col := c.Color().TrueColor().Hex()
	if col < 0 {
		return "-"
	}
	return fmt.Sprintf("#%06x", col)
}

func (c Color) isHex() bool {
	return len(c) == 7 && c[0] == '#'
}

// Color returns a view color
func (c Color) Color() tcell.Color {
	if c == DefaultColor {
		return tcell.ColorDefault
	}
	return tcell.GetColor(string(c)).TrueColor()
}

// ThreadColors defines colors for thread rows
type ThreadColors struct {
	UnreadColor  Color `yaml:"unreadColor"`
	ReadColor    Color `yaml:"readColor"`
	StarredColor Color `yaml:"starredColor"`
	DateColor    Color `yaml:"dateColor"`
}

// FrameColors defines colors for UI frame elements
type FrameColors struct {
	BorderColor    Color `yaml:"borderColor"`
	FocusColor     Color `yaml:"focusColor"`
	TitleColor     Color `yaml:"titleColor"`
	CounterColor   Color `yaml:"counterColor"`
	SelectionColor Color `yaml:"selectionColor"`
}

// BodyColors defines colors for body elements
type BodyColors struct {
	FgColor Color `yaml:"fgColor"`
	BgColor Color `yaml:"bgColor"`
}

// ToastColors defines the foreground of each toast level
type ToastColors struct {
	InfoColor    Color `yaml:"infoColor"`
	SuccessColor Color `yaml:"successColor"`
	WarningColor Color `yaml:"warningColor"`
	ErrorColor   Color `yaml:"errorColor"`
}

// ColorsConfig defines the complete color configuration
type ColorsConfig struct {
	Body   BodyColors   `yaml:"body"`
	Frame  FrameColors  `yaml:"frame"`
	Thread ThreadColors `yaml:"thread"`
	Toast  ToastColors  `yaml:"toast"`
}

// DefaultColors returns the default color configuration
func DefaultColors() *ColorsConfig {
	return &ColorsConfig{
		Body: BodyColors{
			FgColor: NewColor("#f8f8f2"),
			BgColor: NewColor("#282a36"),
		},
		Frame: FrameColors{
			BorderColor:    NewColor("#44475a"),
			FocusColor:     NewColor("#6272a4"),
			TitleColor:     NewColor("#f8f8f2"),
			CounterColor:   NewColor("#50fa7b"),
			SelectionColor: NewColor("#44475a"),
		},
		Thread: ThreadColors{
			UnreadColor:  NewColor("#ffb86c"),
			ReadColor:    NewColor("#6272a4"),
			StarredColor: NewColor("#f1fa8c"),
			DateColor:    NewColor("#8be9fd"),
		},
		Toast: ToastColors{
			InfoColor:    NewColor("#8be9fd"),
			SuccessColor: NewColor("#50fa7b"),
			WarningColor: NewColor("#f1fa8c"),
			ErrorColor:   NewColor("#ff5555"),
		},
	}
}
