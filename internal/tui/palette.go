package tui

import "github.com/charmbracelet/lipgloss"

// Shared colours for the progress view, summaries and the inspect listing.
var (
	ColorInk       = lipgloss.Color("#ECEFF4")
	ColorDim       = lipgloss.Color("#6C7486")
	ColorAccent    = lipgloss.Color("#8FBCBB")
	ColorAccentAlt = lipgloss.Color("#B48EAD")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#D08770")
)
