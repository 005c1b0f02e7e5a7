// Package cli implements colorized help and quick reference card using lipgloss.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Catppuccin Mocha color palette
var (
	colorMauve   = lipgloss.Color("#cba6f7") // Title
	colorBlue    = lipgloss.Color("#89b4fa") // Section headers
	colorGreen   = lipgloss.Color("#a6e3a1") // Commands
	colorYellow  = lipgloss.Color("#f9e2af") // Flags
	colorRed     = lipgloss.Color("#f38ba8") // Critical tier
	colorPeach   = lipgloss.Color("#fab387") // High tier
	colorOverlay = lipgloss.Color("#6c7086") // Muted text
	colorBase    = lipgloss.Color("#1e1e2e") // Background
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMauve).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			MarginTop(1)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	flagStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	criticalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	highStyle = lipgloss.NewStyle().
			Foreground(colorPeach)

	mediumStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorOverlay)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Background(colorBase).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

func showQuickReference() {
	width := clampWidth(detectWidth())
	useUnicode := supportsUnicode()

	border := lipgloss.RoundedBorder()
	if !useUnicode {
		border = lipgloss.Border{
			Top:         "-",
			Bottom:      "-",
			Left:        "|",
			Right:       "|",
			TopLeft:     "+",
			TopRight:    "+",
			BottomLeft:  "+",
			BottomRight: "+",
		}
	}

	container := boxStyle.Copy().Border(border).Width(width)

	titleText := " SABE QUICK REFERENCE — Slash Commands With a Safety Gate "
	titleRendered := gradientText(titleText, []lipgloss.Color{colorMauve, colorBlue})
	if !useUnicode {
		titleRendered = "SABE QUICK REFERENCE - Slash Commands With a Safety Gate"
	}
	title := titleStyle.Copy().Width(width - 4).Align(lipgloss.Center).Render(titleRendered)

	submitting := renderSection(useUnicode, "🔷 SUBMITTING", []string{
		bullet("sabe run \"/analyze @file:sales.csv\"", "resolve the verb and execute or hold"),
		bullet("sabe run \"/figure-out @file:sales.csv\"", "ambiguous verbs come back as numbered picks"),
		bullet("sabe run 1", "answer a pending confirmation by number"),
		bullet("sabe run DELETE", "high-risk commands need their exact word"),
		bullet("sabe repl", "interactive loop over the same session"),
	})

	history := renderSection(useUnicode, "🔶 HISTORY", []string{
		bullet("sabe history", "ledger entries with the undo cursor"),
		bullet("sabe undo --steps 3", "roll back, printing inverse deltas"),
		bullet("sabe undo --preview", "peek without moving the cursor"),
		bullet("sabe redo", "re-apply the next undone entry"),
	})

	reference := renderSection(useUnicode, "🔧 REFERENCE", []string{
		bullet("sabe commands", "the canonical command table and synonyms"),
		bullet("sabe hacks --progress 60", "prompt postscripts due at a milestone"),
		bullet("sabe config get gate.max_tokens", "inspect effective configuration"),
		bullet("sabe config set general.direct_threshold 85 --global", "persist a setting"),
	})

	tiers := tierLegend(useUnicode)
	flags := flagLegend(useUnicode)
	footer := footerLegend(useUnicode)

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		submitting,
		history,
		reference,
		tiers,
		flags,
		footer,
	)

	fmt.Println(container.Render(content))
}

func clampWidth(w int) int {
	if w < 72 {
		return 72
	}
	if w > 100 {
		return 100
	}
	return w
}

func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	// fall back to environment or default
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func supportsUnicode() bool {
	termEnv := strings.ToLower(os.Getenv("TERM"))
	locale := strings.ToLower(strings.Join([]string{
		os.Getenv("LC_ALL"),
		os.Getenv("LC_CTYPE"),
		os.Getenv("LANG"),
	}, " "))
	if strings.Contains(termEnv, "dumb") {
		return false
	}
	return strings.Contains(locale, "utf-8") || strings.Contains(locale, "utf8")
}

func gradientText(text string, colors []lipgloss.Color) string {
	if len(colors) == 0 || !supportsUnicode() {
		return text
	}
	runes := []rune(text)
	segments := len(colors)
	if segments == 1 {
		return lipgloss.NewStyle().Foreground(colors[0]).Render(text)
	}
	// Handle single character case to avoid division by zero
	if len(runes) <= 1 {
		return lipgloss.NewStyle().Foreground(colors[0]).Render(text)
	}

	var b strings.Builder
	for i, r := range runes {
		// simple linear gradient selection
		idx := i * (segments - 1) / (len(runes) - 1)
		b.WriteString(lipgloss.NewStyle().Foreground(colors[idx]).Render(string(r)))
	}
	return b.String()
}

func bullet(command, desc string) string {
	return commandStyle.Render("  "+command) + mutedStyle.Render("  "+desc)
}

func renderSection(useUnicode bool, title string, lines []string) string {
	if !useUnicode {
		title = strings.TrimLeft(title, "🔷🔶🔧 ") // strip icons for ASCII fallback
	}
	header := sectionStyle.Render(title)
	body := strings.Join(lines, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func tierLegend(useUnicode bool) string {
	crit := "CRITICAL (exact word)"
	high := "HIGH (exact word)"
	med := "MEDIUM"
	if useUnicode {
		crit = "🔴 " + crit
		high = "🟠 " + high
		med = "🟡 " + med
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render("🎯 RISK TIERS"),
		fmt.Sprintf("  %s   %s   %s", criticalStyle.Render(crit), highStyle.Render(high), mediumStyle.Render(med)),
	)
}

func flagLegend(useUnicode bool) string {
	prefix := "🚩 GLOBAL FLAGS"
	if !useUnicode {
		prefix = "FLAGS"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render(prefix),
		flagStyle.Render("  -j, --json")+mutedStyle.Render("              structured output"),
		flagStyle.Render("  -C, --project <dir>")+mutedStyle.Render("   override project path"),
		flagStyle.Render("  -s, --session-id <id>")+mutedStyle.Render(" session binding"),
		flagStyle.Render("  --session <name>")+mutedStyle.Render("          named session"),
		flagStyle.Render("  --db <path>")+mutedStyle.Render("               database path"),
	)
}

func footerLegend(useUnicode bool) string {
	repl := "sabe repl"
	help := "sabe <command> --help"
	if !useUnicode {
		return mutedStyle.Render("INTERACTIVE: " + repl + "   HELP: " + help)
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		mutedStyle.Render("INTERACTIVE: "), commandStyle.Render(repl),
		mutedStyle.Render("   HELP: "), commandStyle.Render(help),
	)
}
