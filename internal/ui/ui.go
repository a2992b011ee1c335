// Package ui provides terminal styling helpers for the stash CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/linkstash/linkstash/internal/schema"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	// platformColors maps platforms to brand-adjacent ANSI colors.
	platformColors = map[schema.Platform]lipgloss.Color{
		schema.PlatformTwitter:   lipgloss.Color("39"),
		schema.PlatformInstagram: lipgloss.Color("170"),
		schema.PlatformYouTube:   lipgloss.Color("160"),
		schema.PlatformLinkedIn:  lipgloss.Color("27"),
		schema.PlatformWebsite:   lipgloss.Color("245"),
	}

	colorEnabled = termenv.ColorProfile() != termenv.Ascii
)

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// RenderAccent styles headings and highlights.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderPass styles success markers.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn styles warnings.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderErr styles errors.
func RenderErr(s string) string { return render(errStyle, s) }

// RenderFaint styles secondary detail.
func RenderFaint(s string) string { return render(faintStyle, s) }

// RenderTag styles a tag name.
func RenderTag(s string) string { return render(tagStyle, s) }

// RenderPlatform styles a platform badge.
func RenderPlatform(p schema.Platform) string {
	color, ok := platformColors[p]
	if !ok {
		color = platformColors[schema.PlatformWebsite]
	}
	return render(lipgloss.NewStyle().Foreground(color), string(p))
}
