package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/helmcode/zeropatch/pkg/model"
	"github.com/helmcode/zeropatch/pkg/workflow"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const defaultWidth = 80

// Report is the machine-readable document emitted for json and yaml output.
// A nil Results or PatchedResults is written as null and means the operation
// produced nothing; an empty list is a successful run with nothing to report.
type Report struct {
	Repository     string                `json:"repo_url" yaml:"repo_url"`
	Phase          string                `json:"phase" yaml:"phase"`
	Summary        *model.SeverityCounts `json:"summary,omitempty" yaml:"summary,omitempty"`
	Results        *[]model.FileAnalysis `json:"results" yaml:"results"`
	PatchedResults *[]model.PatchResult  `json:"patched_results" yaml:"patched_results"`
	Error          string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport builds a Report from the controller's current view.
func NewReport(v workflow.View) *Report {
	r := &Report{
		Repository: v.Reference,
		Phase:      v.Phase.String(),
		Error:      v.LastError,
	}
	if v.Findings != nil {
		findings := v.Findings
		counts := model.CountSeverities(findings)
		r.Results = &findings
		r.Summary = &counts
	}
	if v.Patches != nil {
		patches := v.Patches
		r.PatchedResults = &patches
	}
	return r
}

// DisplayReport writes the whole report in the requested format.
func DisplayReport(w io.Writer, r *Report, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return displayJSON(w, r)
	case "yaml":
		return displayYAML(w, r)
	case "human":
		fallthrough
	default:
		if r.Results != nil {
			DisplayFindings(w, *r.Results)
		}
		if r.PatchedResults != nil {
			DisplayPatches(w, *r.PatchedResults)
		}
		if r.Error != "" {
			DisplayError(w, r.Error)
		}
	}
	return nil
}

func displayJSON(w io.Writer, r *Report) error {
	output, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func displayYAML(w io.Writer, r *Report) error {
	output, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(output))
	return err
}

// DisplayFindings renders the vulnerability report in service order.
func DisplayFindings(w io.Writer, findings []model.FileAnalysis) {
	width := detectTerminalWidth(w)
	title := color.New(color.FgMagenta, color.Bold)
	file := color.New(color.FgWhite, color.Bold)

	fmt.Fprintln(w)
	title.Fprintln(w, "🧪 VULNERABILITY REPORT")

	if len(findings) == 0 {
		fmt.Fprintf(w, "   %s\n\n", color.GreenString("No vulnerabilities reported"))
		return
	}

	for _, fa := range findings {
		fmt.Fprintln(w)
		file.Fprintf(w, "📄 %s\n", fa.File)
		if len(fa.Vulnerabilities) == 0 {
			fmt.Fprintf(w, "   %s\n", color.GreenString("No vulnerabilities reported"))
		}
		for i, v := range fa.Vulnerabilities {
			badge := severityColor(v.Severity).Sprintf("%s %s", severityIcon(v.Severity), v.Severity.Label())
			fmt.Fprintf(w, "   %d. %s  %s\n", i+1, badge, v.Type)
			if v.Description != "" {
				fmt.Fprintln(w, wrapText(v.Description, width, "      "))
			}
		}
	}
	fmt.Fprintln(w)
	renderSummary(w, model.CountSeverities(findings))
}

func renderSummary(w io.Writer, counts model.SeverityCounts) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Severity", "Findings"})
	tw.AppendRows([]table.Row{
		{severityColor(model.ParseSeverity("high")).Sprint("HIGH"), counts.High},
		{severityColor(model.ParseSeverity("medium")).Sprint("MEDIUM"), counts.Medium},
		{severityColor(model.ParseSeverity("low")).Sprint("LOW"), counts.Low},
		{severityColor(model.Severity{}).Sprint("OTHER"), counts.Unknown},
	})
	tw.AppendFooter(table.Row{"Total", counts.Total()})
	tw.Render()
}

// DisplayPatches renders each patched file with its code and summary.
func DisplayPatches(w io.Writer, patches []model.PatchResult) {
	width := detectTerminalWidth(w)
	title := color.New(color.FgBlue, color.Bold)
	file := color.New(color.FgWhite, color.Bold)
	gutter := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	title.Fprintln(w, "🧾 CODE & PATCH RECOMMENDATION")

	if len(patches) == 0 {
		fmt.Fprintf(w, "   %s\n\n", color.HiBlackString("No patches generated"))
		return
	}

	for _, p := range patches {
		fmt.Fprintln(w)
		file.Fprintf(w, "📄 %s\n", p.File)
		fmt.Fprintln(w, "   Patched Code:")
		for _, line := range strings.Split(strings.TrimRight(p.PatchedCode.Code, "\n"), "\n") {
			fmt.Fprintf(w, "   %s %s\n", gutter.Sprint("│"), color.CyanString(line))
		}
		if p.PatchedCode.Summary != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, wrapText(p.PatchedCode.Summary, width, "   "))
		}
		if len(p.Vulnerabilities) > 0 {
			addressed := make([]string, 0, len(p.Vulnerabilities))
			for _, v := range p.Vulnerabilities {
				addressed = append(addressed, fmt.Sprintf("%s (%s)", v.Type, severityColor(v.Severity).Sprint(v.Severity.Label())))
			}
			fmt.Fprintf(w, "   Addresses: %s\n", strings.Join(addressed, ", "))
		}
	}
	fmt.Fprintln(w)
}

// DisplayError renders a failed operation.
func DisplayError(w io.Writer, msg string) {
	red := color.New(color.FgRed, color.Bold)
	fmt.Fprintln(w)
	red.Fprintf(w, "⚠️  %s\n", msg)
}

func severityColor(s model.Severity) *color.Color {
	switch s.Level() {
	case model.SeverityHigh:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityMedium:
		return color.New(color.FgYellow)
	case model.SeverityLow:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgHiBlack)
	}
}

func severityIcon(s model.Severity) string {
	switch s.Level() {
	case model.SeverityHigh:
		return "🔴"
	case model.SeverityMedium:
		return "🟠"
	case model.SeverityLow:
		return "🟢"
	default:
		return "✅"
	}
}

func detectTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			if width > 120 {
				return 120
			}
			return width
		}
	}
	return defaultWidth
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if currentLine != indent && len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
