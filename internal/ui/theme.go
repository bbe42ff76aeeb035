package ui

import "github.com/charmbracelet/lipgloss"

// palette переводит имена цветов групп в цвета терминала
var palette = map[string]lipgloss.Color{
	"pink":   lipgloss.Color("#f7768e"),
	"indigo": lipgloss.Color("#7aa2f7"),
	"teal":   lipgloss.Color("#73daca"),
	"cyan":   lipgloss.Color("#7dcfff"),
	"amber":  lipgloss.Color("#e0af68"),
	"green":  lipgloss.Color("#9ece6a"),
	"purple": lipgloss.Color("#bb9af7"),
	"orange": lipgloss.Color("#ff9e64"),
	"blue":   lipgloss.Color("#2ac3de"),
	"red":    lipgloss.Color("#db4b4b"),
	"gray":   lipgloss.Color("#565f89"),
}

var (
	foreground = lipgloss.Color("#c0caf5")
	dim        = lipgloss.Color("#565f89")
	selection  = lipgloss.Color("#33467c")
	warning    = lipgloss.Color("#e0af68")
)

func colorOf(name string) lipgloss.Color {
	if c, ok := palette[name]; ok {
		return c
	}
	if len(name) > 0 && name[0] == '#' {
		return lipgloss.Color(name)
	}
	return foreground
}

type styles struct {
	Title    lipgloss.Style
	Task     lipgloss.Style
	Done     lipgloss.Style
	Selected lipgloss.Style
	Meta     lipgloss.Style
	Toast    lipgloss.Style
	Help     lipgloss.Style
	Error    lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Task:     lipgloss.NewStyle().Foreground(foreground).PaddingLeft(2),
		Done:     lipgloss.NewStyle().Foreground(dim).Strikethrough(true).PaddingLeft(2),
		Selected: lipgloss.NewStyle().Background(selection).Foreground(foreground).PaddingLeft(2),
		Meta:     lipgloss.NewStyle().Foreground(dim),
		Toast:    lipgloss.NewStyle().Foreground(warning).Bold(true),
		Help:     lipgloss.NewStyle().Foreground(dim),
		Error:    lipgloss.NewStyle().Foreground(palette["red"]),
	}
}
