// Package lookup implements the per-contract lookup engine: the staged
// browser interaction sequence that extracts the current pipeline phase and
// the approval-registration date for one contract number, degrading to typed
// sentinel outcomes instead of failing the batch.
package lookup

import (
	"strings"
	"unicode/utf8"
)

// Sentinel phase values. PhaseNotFound means no record matched the contract
// number; PhaseUnknown means a record matched but its phase cell could not be
// mapped to the known vocabulary.
const (
	PhaseNotFound = "NÃO ENCONTRADO"
	PhaseUnknown  = "NÃO IDENTIFICADO"
)

// Tier records which matching tier produced a phase value, for diagnostics.
type Tier int

const (
	TierNone  Tier = iota // no line matched, sentinel returned
	TierExact             // line equals a known phase label
	TierGuess             // first non-status line heuristic
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierGuess:
		return "guess"
	default:
		return "none"
	}
}

// knownPhases is the closed vocabulary of pipeline phase labels as rendered
// by the proposals UI, keyed by their lowercase form.
var knownPhases = map[string]struct{}{
	"formalização digital":    {},
	"protocolar documentação": {},
	"aprovação corban":        {},
	"in100":                   {},
	"crédito":                 {},
	"formalização interna":    {},
	"averbação":               {},
	"lançamento do título":    {},
	"pago":                    {},
	"emissão de cartão":       {},
	"integração documental":   {},
	"integrado":               {},
	"cancelado":               {},
}

// genericStatuses are status qualifiers the UI renders above or below the
// real phase label inside the same cell. The heuristic tier skips them.
var genericStatuses = map[string]struct{}{
	"em andamento": {},
	"cancelado":    {},
	"aprovado":     {},
	"reprovado":    {},
	"pendente":     {},
	"aguardando":   {},
	"em análise":   {},
}

// MatchPhase maps the raw text of a phase cell to a phase value.
//
// Tier one scans the cell's non-empty lines for one that equals, case
// insensitively, a known phase label and returns the canonical lowercase
// form. Tier two picks the first line that is not a generic status word and
// is longer than three runes, returned verbatim. When both tiers fail the
// result is PhaseUnknown.
func MatchPhase(cell string) (string, Tier) {
	var lines []string
	for _, l := range strings.Split(cell, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	for _, l := range lines {
		lower := strings.ToLower(l)
		if _, ok := knownPhases[lower]; ok {
			return lower, TierExact
		}
	}
	for _, l := range lines {
		lower := strings.ToLower(l)
		if _, ok := genericStatuses[lower]; ok {
			continue
		}
		if utf8.RuneCountInString(l) > 3 {
			return l, TierGuess
		}
	}
	return PhaseUnknown, TierNone
}

// Completed reports whether a phase means the contract finished the pipeline.
func Completed(phase string) bool {
	switch strings.ToLower(strings.TrimSpace(phase)) {
	case "integrado", "pago":
		return true
	}
	return false
}

// DateToken extracts the date from a history cell: the first
// whitespace-delimited token, or "" when the cell is blank.
func DateToken(cell string) string {
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
