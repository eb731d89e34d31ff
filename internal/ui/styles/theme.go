package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/ruidmap/internal/models"
)

// Theme represents a color scheme for the application
type Theme struct {
	Name string

	// Base colors
	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	// Accent colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// UI element colors
	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color
	Cursor      lipgloss.Color
}

// TokyoNight is the default color theme
var TokyoNight = Theme{
	Name: "tokyo-night",

	Background:    lipgloss.Color("#1a1b26"),
	Foreground:    lipgloss.Color("#c0caf5"),
	ForegroundDim: lipgloss.Color("#565f89"),

	Primary:   lipgloss.Color("#7aa2f7"),
	Secondary: lipgloss.Color("#bb9af7"),
	Accent:    lipgloss.Color("#7dcfff"),

	Success: lipgloss.Color("#9ece6a"),
	Warning: lipgloss.Color("#e0af68"),
	Error:   lipgloss.Color("#f7768e"),
	Info:    lipgloss.Color("#7aa2f7"),

	Border:      lipgloss.Color("#3b4261"),
	BorderFocus: lipgloss.Color("#7aa2f7"),
	Selection:   lipgloss.Color("#33467c"),
	Cursor:      lipgloss.Color("#c0caf5"),
}

// Catppuccin is the Mocha flavour
var Catppuccin = Theme{
	Name: "catppuccin",

	Background:    lipgloss.Color("#1e1e2e"),
	Foreground:    lipgloss.Color("#cdd6f4"),
	ForegroundDim: lipgloss.Color("#6c7086"),

	Primary:   lipgloss.Color("#89b4fa"),
	Secondary: lipgloss.Color("#cba6f7"),
	Accent:    lipgloss.Color("#94e2d5"),

	Success: lipgloss.Color("#a6e3a1"),
	Warning: lipgloss.Color("#f9e2af"),
	Error:   lipgloss.Color("#f38ba8"),
	Info:    lipgloss.Color("#89dceb"),

	Border:      lipgloss.Color("#45475a"),
	BorderFocus: lipgloss.Color("#89b4fa"),
	Selection:   lipgloss.Color("#313244"),
	Cursor:      lipgloss.Color("#f5e0dc"),
}

var Gruvbox = Theme{
	Name: "gruvbox",

	Background:    lipgloss.Color("#282828"),
	Foreground:    lipgloss.Color("#ebdbb2"),
	ForegroundDim: lipgloss.Color("#928374"),

	Primary:   lipgloss.Color("#fabd2f"),
	Secondary: lipgloss.Color("#d3869b"),
	Accent:    lipgloss.Color("#8ec07c"),

	Success: lipgloss.Color("#b8bb26"),
	Warning: lipgloss.Color("#fe8019"),
	Error:   lipgloss.Color("#fb4934"),
	Info:    lipgloss.Color("#83a598"),

	Border:      lipgloss.Color("#504945"),
	BorderFocus: lipgloss.Color("#fabd2f"),
	Selection:   lipgloss.Color("#3c3836"),
	Cursor:      lipgloss.Color("#ebdbb2"),
}

var Nord = Theme{
	Name: "nord",

	Background:    lipgloss.Color("#2e3440"),
	Foreground:    lipgloss.Color("#eceff4"),
	ForegroundDim: lipgloss.Color("#616e88"),

	Primary:   lipgloss.Color("#88c0d0"),
	Secondary: lipgloss.Color("#b48ead"),
	Accent:    lipgloss.Color("#8fbcbb"),

	Success: lipgloss.Color("#a3be8c"),
	Warning: lipgloss.Color("#ebcb8b"),
	Error:   lipgloss.Color("#bf616a"),
	Info:    lipgloss.Color("#81a1c1"),

	Border:      lipgloss.Color("#4c566a"),
	BorderFocus: lipgloss.Color("#88c0d0"),
	Selection:   lipgloss.Color("#3b4252"),
	Cursor:      lipgloss.Color("#d8dee9"),
}

// Themes lists the built-in themes in cycle order
var Themes = []Theme{TokyoNight, Catppuccin, Gruvbox, Nord}

// Current holds the active theme
var Current = TokyoNight

// Lookup finds a built-in theme by name, ignoring case
func Lookup(name string) (Theme, bool) {
	for _, t := range Themes {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Theme{}, false
}

// Apply makes the named theme current. Unknown names fall back to
// TokyoNight and report false.
func Apply(name string) bool {
	t, ok := Lookup(name)
	if !ok {
		Current = TokyoNight
		return false
	}
	Current = t
	return true
}

// NextName returns the theme after name in cycle order
func NextName(name string) string {
	for i, t := range Themes {
		if strings.EqualFold(t.Name, name) {
			return Themes[(i+1)%len(Themes)].Name
		}
	}
	return Themes[0].Name
}

// StatusColor picks the color a status is drawn in
func StatusColor(s models.Status) lipgloss.Color {
	switch s {
	case models.StatusCompleted:
		return Current.Success
	case models.StatusInProgress:
		return Current.Info
	case models.StatusBlocked:
		return Current.Error
	default:
		return Current.ForegroundDim
	}
}

// PriorityColor picks the color a priority is drawn in
func PriorityColor(p models.Priority) lipgloss.Color {
	switch p {
	case models.PriorityCritical:
		return Current.Error
	case models.PriorityHigh:
		return Current.Warning
	case models.PriorityMedium:
		return Current.Accent
	default:
		return Current.ForegroundDim
	}
}

// ProgressBar draws pct (0-100) as a bar of width cells
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = max(0, min(pct, 100))
	filled := int(pct / 100 * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// MaxWidth is the maximum content width for the app (classic terminal width)
const MaxWidth = 80

// ContentWidth returns the actual content width to use (min of terminal width and MaxWidth)
func ContentWidth(terminalWidth int) int {
	if terminalWidth > MaxWidth {
		return MaxWidth
	}
	return terminalWidth
}

// CenterView wraps content and centers it horizontally if terminal is wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// Styles holds the pre-computed styles for the roadmap views
type Styles struct {
	// Headers
	Title lipgloss.Style
	Muted lipgloss.Style

	// Folder and milestone rows
	List        lipgloss.Style
	Row         lipgloss.Style
	RowSelected lipgloss.Style

	// Milestone details
	Tag      lipgloss.Style
	Progress lipgloss.Style
	Overdue  lipgloss.Style

	// Popups and forms
	Popup         lipgloss.Style
	Search        lipgloss.Style
	Input         lipgloss.Style
	InputFocused  lipgloss.Style
	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonDanger  lipgloss.Style

	// Footer
	Help      lipgloss.Style
	HelpKey   lipgloss.Style
	StatusBar lipgloss.Style
	ErrorText lipgloss.Style

	statuses   map[models.Status]lipgloss.Style
	priorities map[models.Priority]lipgloss.Style
}

// Status returns the style a milestone status is drawn in
func (s *Styles) Status(st models.Status) lipgloss.Style {
	if style, ok := s.statuses[st]; ok {
		return style
	}
	return s.Muted
}

// Priority returns the style a milestone priority is drawn in
func (s *Styles) Priority(p models.Priority) lipgloss.Style {
	if style, ok := s.priorities[p]; ok {
		return style
	}
	return s.Muted
}

// NewStyles creates styles based on the current theme
func NewStyles() *Styles {
	t := Current
	bordered := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(c)
	}

	s := &Styles{
		Title: lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Muted: lipgloss.NewStyle().Foreground(t.ForegroundDim),

		List: lipgloss.NewStyle().Padding(1, 2),
		Row:  lipgloss.NewStyle().Foreground(t.Foreground).Padding(0, 2),
		RowSelected: lipgloss.NewStyle().
			Foreground(t.Primary).
			Background(t.Selection).
			Padding(0, 2).
			Bold(true),

		Tag:      lipgloss.NewStyle().Foreground(t.Accent).Padding(0, 1).MarginRight(1),
		Progress: lipgloss.NewStyle().Foreground(t.Success),
		Overdue:  lipgloss.NewStyle().Foreground(t.Error).Bold(true),

		Popup:         bordered(t.BorderFocus).Padding(0, 1),
		Search:        bordered(t.Border).Padding(0, 1),
		Input:         bordered(t.Border).Foreground(t.Foreground).Padding(0, 1),
		InputFocused:  bordered(t.BorderFocus).Foreground(t.Foreground).Padding(0, 1),
		Button:        bordered(t.Border).Foreground(t.Foreground).Padding(0, 2),
		ButtonFocused: bordered(t.BorderFocus).Foreground(t.Primary).Padding(0, 2).Bold(true),
		ButtonDanger: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Error).
			Padding(0, 2).
			Bold(true),

		Help:      lipgloss.NewStyle().Foreground(t.ForegroundDim).Padding(1, 2),
		HelpKey:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		StatusBar: lipgloss.NewStyle().Foreground(t.ForegroundDim).Padding(0, 1),
		ErrorText: lipgloss.NewStyle().Foreground(t.Error).Padding(0, 1),

		statuses:   make(map[models.Status]lipgloss.Style, len(models.Statuses)),
		priorities: make(map[models.Priority]lipgloss.Style, len(models.Priorities)),
	}
	for _, st := range models.Statuses {
		s.statuses[st] = lipgloss.NewStyle().Foreground(StatusColor(st))
	}
	for _, p := range models.Priorities {
		style := lipgloss.NewStyle().Foreground(PriorityColor(p))
		if p == models.PriorityCritical {
			style = style.Bold(true)
		}
		s.priorities[p] = style
	}
	return s
}
