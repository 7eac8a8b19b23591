package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gohbm/domain/core"
	"gohbm/internal/diagnostics"
	"gohbm/internal/summary"
)

// ChainGeweke holds the Geweke results of one chain
type ChainGeweke struct {
	Chain   int
	Results []diagnostics.GewekeResult
}

// Report collects everything computed in one diagnostics run
type Report struct {
	RunID           core.RunID
	ChainHashes     []core.Hash
	Stats           map[string]summary.Stats
	RHat            map[string]float64
	RHatThreshold   float64
	Geweke          []ChainGeweke
	GewekeThreshold float64
}

// Markdown renders the report as a markdown document
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Convergence report %s\n\n", r.RunID)
	for i, h := range r.ChainHashes {
		fmt.Fprintf(&b, "- chain %d: `%s`\n", i, h.Short())
	}
	if len(r.ChainHashes) > 0 {
		b.WriteString("\n")
	}

	if len(r.Stats) > 0 {
		b.WriteString("## Group parameters\n\n")
		b.WriteString("| name | mean | std | 2.5q | 50q | 97.5q | mc_err |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, name := range summary.Names(r.Stats) {
			s := r.Stats[name]
			fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
				escapeCell(name), s.Mean, s.StdDev, s.Quantile(2.5), s.Quantile(50), s.Quantile(97.5), s.MCError)
		}
		b.WriteString("\n")
	}

	if len(r.RHat) > 0 {
		b.WriteString("## Gelman-Rubin R-hat\n\n")
		b.WriteString("| name | R-hat | converged |\n|---|---|---|\n")
		names := make([]string, 0, len(r.RHat))
		for name := range r.RHat {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := r.RHat[name]
			fmt.Fprintf(&b, "| %s | %.4f | %s |\n", escapeCell(name), v, yesNo(v < r.RHatThreshold))
		}
		b.WriteString("\n")
	}

	for _, cg := range r.Geweke {
		fmt.Fprintf(&b, "## Geweke, chain %d\n\n", cg.Chain)
		b.WriteString("| name | max abs z | converged |\n|---|---|---|\n")
		for _, res := range cg.Results {
			fmt.Fprintf(&b, "| %s | %.3f | %s |\n", escapeCell(res.Param), res.MaxAbsZ, yesNo(res.Converged))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML renders the markdown report to an HTML fragment
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
