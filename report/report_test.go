package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/barrio-survey/model"
	"github.com/mbolis/barrio-survey/sheets"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(id, barrio string, created string, works ...string) model.Record {
	return model.Record{
		ID:            model.ID(id),
		Survey:        model.Survey{DNI: "3000000" + id, Barrio: barrio, ObrasUrgentes: works},
		FechaCreacion: model.Timestamp{Time: at(created)},
		Estado:        model.EstadoCompletada,
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "0%", Percent(0, 0))
	assert.Equal(t, "0%", Percent(5, 0))
	assert.Equal(t, "0.0%", Percent(0, 4))
	assert.Equal(t, "33.3%", Percent(1, 3))
	assert.Equal(t, "100.0%", Percent(2, 2))
	assert.Equal(t, "0.8%", Percent(8, Goal))
}

func TestEmptySnapshot(t *testing.T) {
	assert.Empty(t, Neighborhoods(nil))
	assert.Empty(t, Works(nil))
	assert.Empty(t, Services(nil))
	assert.Empty(t, Evolution(nil))

	now := at("2025-01-01T00:00:00Z")
	k := Summarize(nil, 0, 0, now)
	assert.Equal(t, KPIs{
		CompletionRate: "0%",
		EngagementRate: "0%",
		AvgPerDay:      "0",
		UpdatedAt:      now,
		Page:           1,
		TotalPages:     1,
	}, k)
}

func TestNeighborhoods(t *testing.T) {
	records := []model.Record{
		record("1", "X", "2025-01-01T10:00:00Z", "w1", "w2"),
		record("2", "Y", "2025-01-01T11:00:00Z", "w3"),
		record("3", "X", "2025-01-03T09:00:00Z", "w1"),
	}

	got := Neighborhoods(records)

	want := []NeighborhoodStat{
		{Barrio: "X", Total: 2, Percent: "66.7%", Latest: at("2025-01-03T09:00:00Z"), TopWorks: []string{"w1", "w2"}},
		{Barrio: "Y", Total: 1, Percent: "33.3%", Latest: at("2025-01-01T11:00:00Z"), TopWorks: []string{"w3"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Neighborhoods() mismatch (-want +got):\n%s", diff)
	}
}

func TestNeighborhoods_TopThreeStableTies(t *testing.T) {
	records := []model.Record{
		record("1", "X", "2025-01-01T10:00:00Z", "a", "b", "c"),
		record("2", "X", "2025-01-01T10:00:00Z", "d", "c"),
	}
	got := Neighborhoods(records)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"c", "a", "b"}, got[0].TopWorks)
}

func TestRanking(t *testing.T) {
	records := []model.Record{
		record("1", "X", "2025-01-01T10:00:00Z", "w1", "w2", "w3"),
		record("2", "Y", "2025-01-02T10:00:00Z", "w2"),
		record("3", "X", "2025-01-02T10:00:00Z", "w2", "w1"),
	}

	got := Works(records)

	want := []RankEntry{
		{Item: "w2", Votes: 3, Percent: "50.0%", Barrios: []string{"X", "Y"}},
		{Item: "w1", Votes: 2, Percent: "33.3%", Barrios: []string{"X"}},
		{Item: "w3", Votes: 1, Percent: "16.7%", Barrios: []string{"X"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Works() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvolution(t *testing.T) {
	var records []model.Record
	for i := 0; i < 5; i++ {
		records = append(records, record("b", "X", "2025-01-02T23:30:00Z"))
	}
	for i := 0; i < 3; i++ {
		records = append(records, record("a", "X", "2025-01-01T08:00:00Z"))
	}

	got := Evolution(records)

	want := []DayCount{
		{Date: "2025-01-01", Count: 3, Cumulative: 3, Percent: "0.3%"},
		{Date: "2025-01-02", Count: 5, Cumulative: 8, Percent: "0.8%"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evolution() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvolution_UTCDays(t *testing.T) {
	r := record("1", "X", "2025-01-01T22:00:00-03:00")
	got := Evolution([]model.Record{r})
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01-02", got[0].Date)
}

func TestSummarize(t *testing.T) {
	records := []model.Record{
		record("1", "X", "2025-01-01T10:00:00Z"),
		record("2", "Y", "2025-01-01T11:00:00Z"),
		record("3", "X", "2025-01-02T09:00:00Z"),
	}
	records[1].Estado = "pendiente"
	records[2].QuiereContacto = true
	now := at("2025-01-05T00:00:00Z")

	k := Summarize(records, 2, 4, now)

	assert.Equal(t, 3, k.Total)
	assert.Equal(t, 2, k.Completed)
	assert.Equal(t, "66.7%", k.CompletionRate)
	assert.Equal(t, 2, k.Barrios)
	assert.Equal(t, "1.5", k.AvgPerDay)
	assert.Equal(t, 1, k.WantContact)
	assert.Equal(t, "33.3%", k.EngagementRate)
	assert.Equal(t, 2, k.Page)
	assert.Equal(t, 4, k.TotalPages)
	assert.Len(t, k.Rows(), 10)
}

func TestSummarize_NoneCompleted(t *testing.T) {
	records := []model.Record{
		record("1", "X", "2025-01-01T10:00:00Z"),
		record("2", "Y", "2025-01-02T10:00:00Z"),
	}
	for i := range records {
		records[i].Estado = "pendiente"
	}

	k := Summarize(records, 1, 1, at("2025-01-05T00:00:00Z"))

	assert.Equal(t, 0, k.Completed)
	assert.Equal(t, "0%", k.CompletionRate)
	// engagement is a plain ratio over the records
	assert.Equal(t, "0.0%", k.EngagementRate)
}

func TestStatus(t *testing.T) {
	now := at("2025-01-05T10:00:00Z")
	s := NewStatus("https://api.example", now, false, 30*time.Minute)

	want := []sheets.Row{
		{"API_URL", "https://api.example"},
		{"Última_Sync", "2025-01-05T10:00:00Z"},
		{"Estado_API", "ERROR"},
		{"Próxima_Sync", "2025-01-05T10:30:00Z"},
		{"Total_Errores", 0},
	}
	if diff := cmp.Diff(want, s.Rows()); diff != "" {
		t.Errorf("Status.Rows() mismatch (-want +got):\n%s", diff)
	}
}

func TestRawRows(t *testing.T) {
	r := record("7", "Nazer", "2025-01-01T10:00:00Z", "Cloacas", "Ripio")
	r.ServiciosMejorar = []string{"Volquete"}
	rows := RawRows([]model.Record{r})
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(RawHeader))
	assert.Equal(t, "Cloacas, Ripio", rows[0][3])
	assert.Equal(t, "Volquete", rows[0][4])
	assert.Equal(t, "2025-01-01T10:00:00Z", rows[0][8])
}
