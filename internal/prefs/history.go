package prefs

import "strings"

// MaxHistory bounds the search history.
const MaxHistory = 5

// History is the recent search list, most recent first.
type History struct {
	prefs *Prefs
	terms []string
}

// NewHistory loads the stored history.
func NewHistory(p *Prefs) *History {
	stored, _ := GetJSON[[]string](p.store, KeyHistory)
	return &History{prefs: p, terms: normalizeHistory(stored)}
}

// Terms returns a copy of the history.
func (h *History) Terms() []string {
	return append([]string(nil), h.terms...)
}

// Record moves term to the front. Blank terms are ignored; duplicates are
// matched case-insensitively and replaced by the new spelling.
func (h *History) Record(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	h.terms = normalizeHistory(append([]string{term}, h.terms...))
	h.save()
}

// Remove drops term from the history.
func (h *History) Remove(term string) {
	term = strings.TrimSpace(term)
	out := h.terms[:0:0]
	for _, t := range h.terms {
		if !strings.EqualFold(t, term) {
			out = append(out, t)
		}
	}
	if len(out) == len(h.terms) {
		return
	}
	h.terms = out
	h.save()
}

// Clear removes every term.
func (h *History) Clear() {
	h.terms = nil
	if h.prefs.sink != nil {
		h.prefs.sink.Remove(KeyHistory)
	}
}

func (h *History) save() {
	h.prefs.put(KeyHistory, h.terms)
}

func normalizeHistory(in []string) []string {
	out := make([]string, 0, MaxHistory)
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if strings.EqualFold(existing, t) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		out = append(out, t)
		if len(out) == MaxHistory {
			break
		}
	}
	return out
}
