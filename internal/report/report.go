// Package report renders a run result as a human-readable markdown summary,
// optionally converted to HTML for sharing outside the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"grainmeta/models"
)

// Build produces the markdown report for a run result.
func Build(result models.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Simulation Run %s\n\n", result.Run.ID)
	fmt.Fprintf(&b, "- Seed: %d\n", result.Run.Seed)
	fmt.Fprintf(&b, "- Studies: %d\n", result.Run.StudyCount)
	if result.RarefactionTarget > 0 {
		fmt.Fprintf(&b, "- Rarefaction target: %d individuals\n", result.RarefactionTarget)
	} else {
		b.WriteString("- Rarefaction target: not standardized\n")
	}
	b.WriteString("\n")

	if len(result.Summaries) > 0 {
		b.WriteString("## Meta-Analysis Summaries\n\n")
		b.WriteString("| Metric | Standardized | Studies | Defined | Mean LRR | 95% CI | Grain slope | R2 |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, s := range result.Summaries {
			fmt.Fprintf(&b, "| %s | %t | %d | %d | %.4f | [%.4f, %.4f] | %.4f | %.3f |\n",
				s.Metric, s.Standardized, s.Studies, s.Defined,
				s.MeanLRR, s.CILow, s.CIHigh, s.GrainSlope, s.GrainR2)
		}
		b.WriteString("\n")

		undefined := undefinedNotes(result.Summaries)
		if len(undefined) > 0 {
			b.WriteString("## Undefined Effect Sizes\n\n")
			b.WriteString("Undefined log-ratios are excluded from the pooled mean but counted here;\n")
			b.WriteString("they usually indicate samples too small for the metric at this grain.\n\n")
			for _, note := range undefined {
				fmt.Fprintf(&b, "- %s\n", note)
			}
			b.WriteString("\n")
		}
	}

	if len(result.Run.Studies) > 0 {
		b.WriteString("## Study Designs\n\n")
		b.WriteString("| Index | Grain | Quadrats | Placement | Control S/J | Treatment S/J |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, s := range result.Run.Studies {
			fmt.Fprintf(&b, "| %d | %.4f | %d | %s | %d/%d | %d/%d |\n",
				s.Index, s.Grain, s.Quadrats, s.Placement,
				s.Control.PoolSize, s.Control.Individuals,
				s.Treatment.PoolSize, s.Treatment.Individuals)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func undefinedNotes(summaries []models.MetaSummary) []string {
	var notes []string
	for _, s := range summaries {
		if s.Undefined == 0 {
			continue
		}
		label := string(s.Metric)
		if s.Standardized {
			label += " (standardized)"
		}
		for _, reason := range s.UndefinedReasons {
			notes = append(notes, fmt.Sprintf("%s: %s", label, reason))
		}
		if len(s.UndefinedReasons) == 0 {
			notes = append(notes, fmt.Sprintf("%s: %d undefined", label, s.Undefined))
		}
	}
	return notes
}

// RenderHTML converts a markdown report to a standalone HTML fragment.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}
