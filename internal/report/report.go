// Package report renders batch results as a styled three-sheet Excel
// workbook (detail, summary with chart, pending items) plus a terminal
// summary.
package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"esteira/internal/lookup"
)

const dateLayout = "02/01/2006"

// Palette anchors shared by all sheets.
const (
	navyFill      = "1F3864"
	navySecondary = "2E5496"
	zebraFill     = "EBF3FB"
	alertFill     = "C00000"
)

// phaseColors maps a lowercase phase to its fill and font color.
var phaseColors = map[string][2]string{
	"integrado":               {"00B050", "FFFFFF"},
	"pago":                    {"FFD700", "000000"},
	"emissão de cartão":       {"4472C4", "FFFFFF"},
	"integração documental":   {"C00000", "FFFFFF"},
	"averbação":               {"FF6600", "FFFFFF"},
	"formalização digital":    {"7030A0", "FFFFFF"},
	"formalização interna":    {"C9549A", "FFFFFF"},
	"aprovação corban":        {"008B8B", "FFFFFF"},
	"in100":                   {"00B0F0", "FFFFFF"},
	"crédito":                 {"ED7D31", "FFFFFF"},
	"protocolar documentação": {"5B5EA6", "FFFFFF"},
	"lançamento do título":    {"843C0C", "FFFFFF"},
	"cancelado":               {"595959", "FFFFFF"},
	"não encontrado":          {"D9D9D9", "000000"},
	"não identificado":        {"BFBFBF", "000000"},
}

// situationMap condenses each phase into the short status the back office
// reads. Unknown phases fall back to "EM PROCESSO".
var situationMap = map[string]string{
	"integrado":               "CONCLUIDO",
	"pago":                    "PAGO",
	"emissão de cartão":       "EM EMISSAO DE CARTAO",
	"averbação":               "AGUARD. AVERBACAO",
	"integração documental":   "DOC. EM ANDAMENTO",
	"formalização digital":    "FORMALIZANDO",
	"formalização interna":    "FORMALIZANDO",
	"aprovação corban":        "AGUARD. APROVACAO",
	"in100":                   "ANALISE IN100",
	"crédito":                 "ANALISE CREDITO",
	"protocolar documentação": "PROTOCOLO PENDENTE",
	"lançamento do título":    "AGUARD. LANCAMENTO",
	"cancelado":               "CANCELADO",
	"não encontrado":          "VERIFICAR MANUAL.",
	"não identificado":        "VERIFICAR MANUAL.",
}

var situationColors = map[string][2]string{
	"CONCLUIDO":            {"C6EFCE", "276221"},
	"PAGO":                 {"FFEB9C", "9C5700"},
	"EM EMISSAO DE CARTAO": {"DDEEFF", "003399"},
	"AGUARD. AVERBACAO":    {"FFCC99", "C55A11"},
	"DOC. EM ANDAMENTO":    {"FFD7D7", "9C0006"},
	"FORMALIZANDO":         {"E8D5F5", "5B2D8E"},
	"AGUARD. APROVACAO":    {"D5F5EE", "1A7B5E"},
	"ANALISE IN100":        {"D5F0FA", "0070C0"},
	"ANALISE CREDITO":      {"FCE4D6", "C55A11"},
	"PROTOCOLO PENDENTE":   {"DDD9EE", "4B3E99"},
	"AGUARD. LANCAMENTO":   {"F5DFD0", "843C0C"},
	"CANCELADO":            {"D9D9D9", "595959"},
	"VERIFICAR MANUAL.":    {"FF0000", "FFFFFF"},
}

var attentionPhases = map[string]struct{}{
	"cancelado":        {},
	"não encontrado":   {},
	"não identificado": {},
}

// Situation condenses a phase into its short back-office status.
func Situation(phase string) string {
	if s, ok := situationMap[phaseKey(phase)]; ok {
		return s
	}
	return "EM PROCESSO"
}

// DaysSince parses a dd/mm/yyyy date and returns whole days elapsed until
// today. ok is false for blank or malformed dates.
func DaysSince(dateStr string, today time.Time) (int, bool) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return 0, false
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(d).Hours() / 24), true
}

// AttentionReason reports why an outcome lands on the pending sheet. ok is
// false for completed contracts, which are not pending.
func AttentionReason(phase string) (string, bool) {
	key := phaseKey(phase)
	if _, ok := attentionPhases[key]; ok {
		if strings.Contains(key, "encontrado") || strings.Contains(key, "identificado") {
			return "Nao localizado no sistema", true
		}
		return "Contrato cancelado", true
	}
	if lookup.Completed(phase) {
		return "", false
	}
	return "Em andamento: " + phase, true
}

func phaseKey(phase string) string {
	return strings.ToLower(strings.TrimSpace(phase))
}

// PartialPath derives the intermediate save path from the final one:
// relatorio.xlsx becomes relatorio_parcial.xlsx.
func PartialPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_parcial" + ext
}

// Save writes the workbook to path. now stamps the generation time and
// anchors the elapsed-days column.
func Save(path string, outcomes []lookup.Outcome, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	w := &workbook{f: f, now: now}
	if err := w.detailSheet(outcomes); err != nil {
		return fmt.Errorf("detail sheet: %w", err)
	}
	if err := w.summarySheet(outcomes); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := w.pendingSheet(outcomes); err != nil {
		return fmt.Errorf("pending sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

type workbook struct {
	f   *excelize.File
	now time.Time
}

func (w *workbook) style(bg, fg string, bold bool, size float64, horizontal string) (int, error) {
	border := []excelize.Border{
		{Type: "left", Color: "B0C4DE", Style: 1},
		{Type: "right", Color: "B0C4DE", Style: 1},
		{Type: "top", Color: "B0C4DE", Style: 1},
		{Type: "bottom", Color: "B0C4DE", Style: 1},
	}
	return w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Family: "Calibri", Size: size, Bold: bold, Color: fg},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{bg}},
		Alignment: &excelize.Alignment{
			Horizontal: horizontal,
			Vertical:   "center",
		},
		Border: border,
	})
}

func (w *workbook) setCell(sheet string, col, row int, val interface{}, styleID int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := w.f.SetCellValue(sheet, cell, val); err != nil {
		return err
	}
	return w.f.SetCellStyle(sheet, cell, cell, styleID)
}

func (w *workbook) detailSheet(outcomes []lookup.Outcome) error {
	const sheet = "Relatorio"
	if err := w.f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headers := []string{
		"Seq.", "Numero do Contrato", "Fase da Esteira",
		"Situacao Resumida", "Data de Averbacao", "Dias desde Averbacao",
	}
	widths := []float64{8, 24, 26, 22, 20, 22}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	headerStyle, err := w.style(navyFill, "FFFFFF", true, 11, "center")
	if err != nil {
		return err
	}
	for i, h := range headers {
		if err := w.setCell(sheet, i+1, 1, h, headerStyle); err != nil {
			return err
		}
	}
	_ = w.f.SetRowHeight(sheet, 1, 26)

	for i, out := range outcomes {
		row := i + 2
		key := phaseKey(out.Phase)
		sit := Situation(out.Phase)
		days, hasDays := DaysSince(out.ApprovalDate, w.now)

		zebra := "FFFFFF"
		if row%2 == 0 {
			zebra = zebraFill
		}
		plain, err := w.style(zebra, "000000", false, 10, "center")
		if err != nil {
			return err
		}

		pc, ok := phaseColors[key]
		if !ok {
			pc = [2]string{zebra, "000000"}
		}
		phaseStyle, err := w.style(pc[0], pc[1], true, 10, "center")
		if err != nil {
			return err
		}

		sc, ok := situationColors[sit]
		if !ok {
			sc = [2]string{zebra, "000000"}
		}
		sitStyle, err := w.style(sc[0], sc[1], true, 10, "center")
		if err != nil {
			return err
		}

		if err := w.setCell(sheet, 1, row, out.Sequence, plain); err != nil {
			return err
		}
		if err := w.setCell(sheet, 2, row, out.Contract, plain); err != nil {
			return err
		}
		if err := w.setCell(sheet, 3, row, out.Phase, phaseStyle); err != nil {
			return err
		}
		if err := w.setCell(sheet, 4, row, sit, sitStyle); err != nil {
			return err
		}
		if err := w.setCell(sheet, 5, row, out.ApprovalDate, plain); err != nil {
			return err
		}
		if hasDays {
			db, df := daysBand(days)
			daysStyle, err := w.style(db, df, true, 10, "center")
			if err != nil {
				return err
			}
			if err := w.setCell(sheet, 6, row, days, daysStyle); err != nil {
				return err
			}
		} else {
			if err := w.setCell(sheet, 6, row, "-", plain); err != nil {
				return err
			}
		}
		_ = w.f.SetRowHeight(sheet, row, 18)
	}

	return w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// daysBand colors the elapsed-days cell: fresh, aging, stale.
func daysBand(days int) (bg, fg string) {
	switch {
	case days <= 7:
		return "C6EFCE", "276221"
	case days <= 30:
		return "FFEB9C", "9C5700"
	default:
		return "FFD7D7", "9C0006"
	}
}

type phaseCount struct {
	phase string
	count int
}

func countPhases(outcomes []lookup.Outcome) []phaseCount {
	counts := make(map[string]int)
	for _, out := range outcomes {
		counts[out.Phase]++
	}
	ordered := make([]phaseCount, 0, len(counts))
	for phase, n := range counts {
		ordered = append(ordered, phaseCount{phase: phase, count: n})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].phase < ordered[j].phase
	})
	return ordered
}

func (w *workbook) summarySheet(outcomes []lookup.Outcome) error {
	const sheet = "Resumo"
	if _, err := w.f.NewSheet(sheet); err != nil {
		return err
	}

	titleStyle, err := w.style(navyFill, "FFFFFF", true, 13, "center")
	if err != nil {
		return err
	}
	if err := w.f.MergeCell(sheet, "A1", "D1"); err != nil {
		return err
	}
	if err := w.setCell(sheet, 1, 1, "RESUMO — CONTRATOS POR FASE DA ESTEIRA", titleStyle); err != nil {
		return err
	}
	_ = w.f.SetRowHeight(sheet, 1, 30)

	stampStyle, err := w.style("F2F7FC", "595959", false, 10, "right")
	if err != nil {
		return err
	}
	if err := w.f.MergeCell(sheet, "A2", "D2"); err != nil {
		return err
	}
	stamp := "Gerado em: " + w.now.Format("02/01/2006 às 15:04")
	if err := w.setCell(sheet, 1, 2, stamp, stampStyle); err != nil {
		return err
	}

	headStyle, err := w.style(navySecondary, "FFFFFF", true, 11, "center")
	if err != nil {
		return err
	}
	for i, h := range []string{"Fase da Esteira", "Qtd. Contratos", "% do Total"} {
		if err := w.setCell(sheet, i+1, 3, h, headStyle); err != nil {
			return err
		}
	}

	ordered := countPhases(outcomes)
	total := len(outcomes)
	for i, pc := range ordered {
		row := i + 4
		key := phaseKey(pc.phase)
		colors, ok := phaseColors[key]
		if !ok {
			colors = [2]string{"F2F7FC", "000000"}
		}
		phaseStyle, err := w.style(colors[0], colors[1], true, 11, "left")
		if err != nil {
			return err
		}
		countStyle, err := w.style("FFFFFF", navyFill, true, 11, "center")
		if err != nil {
			return err
		}
		pctStyle, err := w.style("FFFFFF", "595959", false, 11, "center")
		if err != nil {
			return err
		}

		if err := w.setCell(sheet, 1, row, pc.phase, phaseStyle); err != nil {
			return err
		}
		if err := w.setCell(sheet, 2, row, pc.count, countStyle); err != nil {
			return err
		}
		pct := fmt.Sprintf("%.1f%%", float64(pc.count)/float64(total)*100)
		if err := w.setCell(sheet, 3, row, pct, pctStyle); err != nil {
			return err
		}
	}

	totalRow := len(ordered) + 4
	totalStyle, err := w.style(navyFill, "FFFFFF", true, 11, "left")
	if err != nil {
		return err
	}
	for i, v := range []interface{}{"TOTAL GERAL", total, "100%"} {
		if err := w.setCell(sheet, i+1, totalRow, v, totalStyle); err != nil {
			return err
		}
	}

	_ = w.f.SetColWidth(sheet, "A", "A", 30)
	_ = w.f.SetColWidth(sheet, "B", "B", 18)
	_ = w.f.SetColWidth(sheet, "C", "C", 14)

	if len(ordered) == 0 {
		return nil
	}
	lastDataRow := len(ordered) + 3
	return w.f.AddChart(sheet, "E3", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$3", sheet),
			Categories: fmt.Sprintf("%s!$A$4:$A$%d", sheet, lastDataRow),
			Values:     fmt.Sprintf("%s!$B$4:$B$%d", sheet, lastDataRow),
		}},
		Title: []excelize.RichTextRun{{Text: "Contratos por Fase da Esteira"}},
		XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Fase"}}},
		YAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Quantidade"}}},
		Dimension: excelize.ChartDimension{
			Width:  600,
			Height: 420,
		},
	})
}

func (w *workbook) pendingSheet(outcomes []lookup.Outcome) error {
	const sheet = "Pendencias"
	if _, err := w.f.NewSheet(sheet); err != nil {
		return err
	}

	titleStyle, err := w.style(alertFill, "FFFFFF", true, 13, "center")
	if err != nil {
		return err
	}
	if err := w.f.MergeCell(sheet, "A1", "F1"); err != nil {
		return err
	}
	if err := w.setCell(sheet, 1, 1, "PENDENCIAS — CONTRATOS QUE REQUEREM ATENCAO", titleStyle); err != nil {
		return err
	}
	_ = w.f.SetRowHeight(sheet, 1, 30)

	headStyle, err := w.style(alertFill, "FFFFFF", true, 11, "center")
	if err != nil {
		return err
	}
	headers := []string{"Seq.", "Numero do Contrato", "Fase da Esteira", "Situacao", "Data Averbacao", "Motivo"}
	for i, h := range headers {
		if err := w.setCell(sheet, i+1, 3, h, headStyle); err != nil {
			return err
		}
	}

	row := 4
	for _, out := range outcomes {
		reason, pending := AttentionReason(out.Phase)
		if !pending {
			continue
		}
		key := phaseKey(out.Phase)
		sit := Situation(out.Phase)

		zebra := "FFFFFF"
		if row%2 == 0 {
			zebra = "FFF2F2"
		}
		plain, err := w.style(zebra, "000000", false, 10, "center")
		if err != nil {
			return err
		}
		pc, ok := phaseColors[key]
		if !ok {
			pc = [2]string{zebra, "000000"}
		}
		phaseStyle, err := w.style(pc[0], pc[1], true, 10, "center")
		if err != nil {
			return err
		}
		sc, ok := situationColors[sit]
		if !ok {
			sc = [2]string{zebra, "000000"}
		}
		sitStyle, err := w.style(sc[0], sc[1], true, 10, "center")
		if err != nil {
			return err
		}

		cells := []struct {
			val   interface{}
			style int
		}{
			{out.Sequence, plain},
			{out.Contract, plain},
			{out.Phase, phaseStyle},
			{sit, sitStyle},
			{out.ApprovalDate, plain},
			{reason, plain},
		}
		for i, c := range cells {
			if err := w.setCell(sheet, i+1, row, c.val, c.style); err != nil {
				return err
			}
		}
		_ = w.f.SetRowHeight(sheet, row, 18)
		row++
	}

	stampStyle, err := w.style("FFF2F2", "595959", false, 10, "left")
	if err != nil {
		return err
	}
	if err := w.f.MergeCell(sheet, "A2", "F2"); err != nil {
		return err
	}
	stamp := fmt.Sprintf("Gerado em: %s  |  Total de pendencias: %d",
		w.now.Format("02/01/2006 às 15:04"), row-4)
	if err := w.setCell(sheet, 1, 2, stamp, stampStyle); err != nil {
		return err
	}

	for i, width := range []float64{8, 24, 26, 22, 20, 30} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
