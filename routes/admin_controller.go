package routes

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/barrio-survey/app"
	"github.com/mbolis/barrio-survey/httpx"
	"github.com/mbolis/barrio-survey/sheets"
)

func ListReports(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := app.Reports.Sheets(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "reports.list", err)
			return
		}
		if names == nil {
			names = []string{}
		}
		render.JSON(w, r, map[string]any{"sheets": names})
	}
}

func GetReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet := chi.URLParam(r, "sheet")

		// reading a sheet creates it, so unknown names stop here
		names, err := app.Reports.Sheets(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "reports.list", err)
			return
		}
		if !slices.Contains(names, sheet) {
			httpx.LogNotFound(w, "reports.get", sheet)
			return
		}

		rows, err := app.Reports.ReadRows(r.Context(), sheet)
		if err != nil {
			httpx.LogInternalError(w, "reports.read", err)
			return
		}
		if rows == nil {
			rows = []sheets.Row{}
		}
		render.JSON(w, r, map[string]any{
			"sheet": sheet,
			"rows":  rows,
		})
	}
}
