package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/mbolis/barrio-survey/model"
)

const topWorks = 3

type NeighborhoodStat struct {
	Barrio   string
	Total    int
	Percent  string
	Latest   time.Time
	TopWorks []string
}

// Neighborhoods groups records by barrio, in order of first appearance.
func Neighborhoods(records []model.Record) []NeighborhoodStat {
	type group struct {
		total  int
		latest time.Time
		works  *tally
	}
	var order []string
	groups := map[string]*group{}

	for _, r := range records {
		g, ok := groups[r.Barrio]
		if !ok {
			g = &group{latest: r.FechaCreacion.Time, works: newTally()}
			groups[r.Barrio] = g
			order = append(order, r.Barrio)
		}
		g.total++
		for _, w := range r.ObrasUrgentes {
			g.works.add(w)
		}
		if r.FechaCreacion.After(g.latest) {
			g.latest = r.FechaCreacion.Time
		}
	}

	stats := make([]NeighborhoodStat, len(order))
	for i, b := range order {
		g := groups[b]
		ranked := g.works.ranked()
		top := make([]string, 0, topWorks)
		for _, c := range ranked[:min(topWorks, len(ranked))] {
			top = append(top, c.key)
		}
		stats[i] = NeighborhoodStat{
			Barrio:   b,
			Total:    g.total,
			Percent:  Percent(g.total, len(records)),
			Latest:   g.latest,
			TopWorks: top,
		}
	}
	return stats
}

type RankEntry struct {
	Item    string
	Votes   int
	Percent string
	Barrios []string
}

// Ranking counts every selected item across all records. Percentages are
// over the total number of votes, not records.
func Ranking(records []model.Record, pick func(model.Record) []string) []RankEntry {
	votes := newTally()
	barrios := map[string]*set{}
	total := 0

	for _, r := range records {
		for _, item := range pick(r) {
			votes.add(item)
			if barrios[item] == nil {
				barrios[item] = &set{}
			}
			barrios[item].add(r.Barrio)
			total++
		}
	}

	ranked := votes.ranked()
	entries := make([]RankEntry, len(ranked))
	for i, c := range ranked {
		entries[i] = RankEntry{
			Item:    c.key,
			Votes:   c.n,
			Percent: Percent(c.n, total),
			Barrios: barrios[c.key].items,
		}
	}
	return entries
}

func Works(records []model.Record) []RankEntry {
	return Ranking(records, func(r model.Record) []string { return r.ObrasUrgentes })
}

func Services(records []model.Record) []RankEntry {
	return Ranking(records, func(r model.Record) []string { return r.ServiciosMejorar })
}

type DayCount struct {
	Date       string
	Count      int
	Cumulative int
	Percent    string
}

// Evolution buckets records by UTC day, ascending, with the running total
// measured against Goal.
func Evolution(records []model.Record) []DayCount {
	perDay := map[string]int{}
	for _, r := range records {
		perDay[Day(r.FechaCreacion.Time)]++
	}

	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DayCount, len(days))
	cumulative := 0
	for i, d := range days {
		cumulative += perDay[d]
		out[i] = DayCount{
			Date:       d,
			Count:      perDay[d],
			Cumulative: cumulative,
			Percent:    Percent(cumulative, Goal),
		}
	}
	return out
}

type KPIs struct {
	Total          int
	Completed      int
	CompletionRate string
	Barrios        int
	AvgPerDay      string
	UpdatedAt      time.Time
	WantContact    int
	EngagementRate string
	TotalPages     int
	Page           int
}

// Summarize reduces the records to the headline figures. Missing paging
// metadata counts as a single page.
func Summarize(records []model.Record, page, totalPages int, now time.Time) KPIs {
	k := KPIs{Total: len(records), UpdatedAt: now, Page: page, TotalPages: totalPages}
	if k.Page == 0 {
		k.Page = 1
	}
	if k.TotalPages == 0 {
		k.TotalPages = 1
	}

	barrios := map[string]bool{}
	days := map[string]bool{}
	for _, r := range records {
		if completed(r) {
			k.Completed++
		}
		if r.QuiereContacto {
			k.WantContact++
		}
		barrios[r.Barrio] = true
		days[Day(r.FechaCreacion.Time)] = true
	}
	k.Barrios = len(barrios)
	// no completed surveys reads "0%", not "0.0%"
	k.CompletionRate = "0%"
	if k.Completed > 0 {
		k.CompletionRate = Percent(k.Completed, k.Total)
	}
	k.EngagementRate = Percent(k.WantContact, k.Total)

	k.AvgPerDay = "0"
	if len(days) > 0 {
		k.AvgPerDay = fmt.Sprintf("%.1f", float64(k.Total)/float64(len(days)))
	}
	return k
}

const (
	APIActive = "ACTIVO"
	APIError  = "ERROR"
)

// Status describes the last sync. Errors is reported but nothing counts
// into it yet.
type Status struct {
	APIURL   string
	SyncedAt time.Time
	Healthy  bool
	NextSync time.Time
	Errors   int
}

func NewStatus(apiURL string, now time.Time, healthy bool, interval time.Duration) Status {
	return Status{
		APIURL:   apiURL,
		SyncedAt: now,
		Healthy:  healthy,
		NextSync: now.Add(interval),
	}
}

func (s Status) APIState() string {
	if s.Healthy {
		return APIActive
	}
	return APIError
}
