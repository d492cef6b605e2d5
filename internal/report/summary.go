package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"esteira/internal/lookup"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	phaseNameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	countStyle     = lipgloss.NewStyle().Bold(true)
	doneStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	pendingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	alertStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Summary renders a per-phase breakdown of a finished batch for the terminal.
func Summary(outcomes []lookup.Outcome) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Contratos por fase"))
	b.WriteString("\n")

	for _, pc := range countPhases(outcomes) {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			countStyle.Render(fmt.Sprintf("%4d", pc.count)),
			phaseNameStyle.Render(pc.phase)))
	}

	var done, alerts int
	for _, out := range outcomes {
		if lookup.Completed(out.Phase) {
			done++
		} else if _, terminal := attentionPhases[phaseKey(out.Phase)]; terminal {
			alerts++
		}
	}
	inProgress := len(outcomes) - done - alerts

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s  %s  %s\n",
		doneStyle.Render(fmt.Sprintf("concluídos: %d", done)),
		pendingStyle.Render(fmt.Sprintf("em andamento: %d", inProgress)),
		alertStyle.Render(fmt.Sprintf("atenção: %d", alerts))))
	return b.String()
}
