package report

import (
	"strings"

	"github.com/mbolis/barrio-survey/model"
	"github.com/mbolis/barrio-survey/sheets"
)

const listSep = ", "

var (
	RawHeader          = sheets.Row{"id", "dni", "barrio", "obrasUrgentes", "serviciosMejorar", "nombreCompleto", "telefono", "email", "fechaCreacion", "estado"}
	NeighborhoodHeader = sheets.Row{"Barrio", "Total_Respuestas", "Porcentaje", "Ultima_Actualizacion", "Obras_Mas_Solicitadas"}
	WorksHeader        = sheets.Row{"Obra", "Cantidad_Votos", "Porcentaje", "Barrios_Solicitaron"}
	ServicesHeader     = sheets.Row{"Servicio", "Cantidad_Votos", "Porcentaje", "Barrios_Solicitaron"}
	EvolutionHeader    = sheets.Row{"Fecha", "Respuestas_Dia", "Acumulado", "Porcentaje_Meta"}
	KPIHeader          = sheets.Row{"Métrica", "Valor"}
	StatusHeader       = sheets.Row{"Parámetro", "Valor"}
	ErrorHeader        = sheets.Row{"Timestamp", "Error", "Stack"}
)

func RawRows(records []model.Record) []sheets.Row {
	rows := make([]sheets.Row, len(records))
	for i, r := range records {
		rows[i] = sheets.Row{
			string(r.ID),
			r.DNI,
			r.Barrio,
			strings.Join(r.ObrasUrgentes, listSep),
			strings.Join(r.ServiciosMejorar, listSep),
			r.NombreCompleto,
			r.Telefono,
			r.Email,
			r.FechaCreacion.UTC().Format(TimeLayout),
			r.Estado,
		}
	}
	return rows
}

func NeighborhoodRows(stats []NeighborhoodStat) []sheets.Row {
	rows := make([]sheets.Row, len(stats))
	for i, s := range stats {
		rows[i] = sheets.Row{s.Barrio, s.Total, s.Percent, s.Latest.UTC().Format(TimeLayout), strings.Join(s.TopWorks, listSep)}
	}
	return rows
}

func RankingRows(entries []RankEntry) []sheets.Row {
	rows := make([]sheets.Row, len(entries))
	for i, e := range entries {
		rows[i] = sheets.Row{e.Item, e.Votes, e.Percent, strings.Join(e.Barrios, listSep)}
	}
	return rows
}

func EvolutionRows(days []DayCount) []sheets.Row {
	rows := make([]sheets.Row, len(days))
	for i, d := range days {
		rows[i] = sheets.Row{d.Date, d.Count, d.Cumulative, d.Percent}
	}
	return rows
}

func (k KPIs) Rows() []sheets.Row {
	return []sheets.Row{
		{"Total Respuestas", k.Total},
		{"Encuestas Completadas", k.Completed},
		{"Tasa Completado", k.CompletionRate},
		{"Barrios Participantes", k.Barrios},
		{"Promedio Respuestas/Día", k.AvgPerDay},
		{"Última Actualización", k.UpdatedAt.UTC().Format(TimeLayout)},
		{"Personas Quieren Contacto", k.WantContact},
		{"Tasa Engagement", k.EngagementRate},
		{"Total Páginas", k.TotalPages},
		{"Página Actual", k.Page},
	}
}

func (s Status) Rows() []sheets.Row {
	return []sheets.Row{
		{"API_URL", s.APIURL},
		{"Última_Sync", s.SyncedAt.UTC().Format(TimeLayout)},
		{"Estado_API", s.APIState()},
		{"Próxima_Sync", s.NextSync.UTC().Format(TimeLayout)},
		{"Total_Errores", s.Errors},
	}
}
