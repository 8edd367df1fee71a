// Package report derives the dashboard tables from a snapshot of survey
// records. Every function is a pure reduction over its input: the same
// records always produce the same values, in the same order.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/mbolis/barrio-survey/model"
)

// Goal is the number of responses the campaign aims for.
const Goal = 1000

const (
	DateLayout = "2006-01-02"
	TimeLayout = time.RFC3339
)

// Percent formats num/den with one decimal. A zero denominator gives "0%".
func Percent(num, den int) string {
	if den == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(num)/float64(den)*100)
}

// Day is the UTC calendar day of t.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// tally counts keys and remembers the order they were first seen in, which
// is the tie-break order once sorted by count.
type tally struct {
	keys   []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: map[string]int{}}
}

func (t *tally) add(key string) {
	if _, ok := t.counts[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.counts[key]++
}

type count struct {
	key string
	n   int
}

func (t *tally) ranked() []count {
	out := make([]count, len(t.keys))
	for i, k := range t.keys {
		out[i] = count{k, t.counts[k]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].n > out[j].n })
	return out
}

// set keeps distinct strings in insertion order.
type set struct {
	items []string
	seen  map[string]bool
}

func (s *set) add(v string) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if !s.seen[v] {
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}

func completed(r model.Record) bool {
	return r.Estado == model.EstadoCompletada
}
