package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/helmcode/zeropatch/pkg/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).MarginTop(1)
	fileStyle    = lipgloss.NewStyle().Bold(true)
	descStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(4)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Padding(0, 1)
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("8")).PaddingLeft(1).MarginLeft(2)
)

// badgeColors maps severity weight to a badge background.
var badgeColors = map[int]lipgloss.Color{
	3: lipgloss.Color("1"),
	2: lipgloss.Color("208"),
	1: lipgloss.Color("2"),
	0: lipgloss.Color("8"),
}

func badge(s model.Severity) string {
	icon := "✅"
	switch s.Level() {
	case model.SeverityHigh:
		icon = "🔴"
	case model.SeverityMedium:
		icon = "🟠"
	case model.SeverityLow:
		icon = "🟢"
	}
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(badgeColors[s.Weight()]).
		Padding(0, 1)
	return style.Render(fmt.Sprintf("%s %s", icon, s.Label()))
}

func renderFindings(findings []model.FileAnalysis) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("🧪 Vulnerability Report"))
	b.WriteString("\n")
	if len(findings) == 0 {
		b.WriteString(descStyle.Render("No vulnerabilities reported"))
		b.WriteString("\n")
		return b.String()
	}
	for _, fa := range findings {
		b.WriteString("\n")
		b.WriteString(fileStyle.Render(fa.File))
		b.WriteString("\n")
		for _, v := range fa.Vulnerabilities {
			fmt.Fprintf(&b, "  %s %s\n", badge(v.Severity), v.Type)
			if v.Description != "" {
				b.WriteString(descStyle.Render(v.Description))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func renderPatches(patches []model.PatchResult) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("🧾 Code & Patch Recommendation"))
	b.WriteString("\n")
	if len(patches) == 0 {
		b.WriteString(descStyle.Render("No patches generated"))
		b.WriteString("\n")
		return b.String()
	}
	for _, p := range patches {
		b.WriteString("\n")
		b.WriteString(fileStyle.Render(p.File))
		b.WriteString("\n  Patched Code:\n")
		b.WriteString(codeStyle.Render(strings.TrimRight(p.PatchedCode.Code, "\n")))
		b.WriteString("\n")
		if p.PatchedCode.Summary != "" {
			b.WriteString(descStyle.Render(p.PatchedCode.Summary))
			b.WriteString("\n")
		}
	}
	return b.String()
}
