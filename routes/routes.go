package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/mbolis/barrio-survey/app"
	"github.com/mbolis/barrio-survey/routes/middlewares"
)

// Wire builds the HTTP handler. Background helpers stop when ctx is done.
func Wire(ctx context.Context, app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RealIP, middleware.Logger, middleware.Recoverer, middlewares.Metrics)

	root.Mount("/api", apiRouter(ctx, app))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(ctx context.Context, app app.App) http.Handler {
	api := chi.NewRouter()
	guard := newInflight(ctx)

	api.Get("/catalogs", GetCatalogs())

	api.Route("/survey", func(r chi.Router) {
		r.Post("/", StartSurvey(app))
		r.Get("/", GetSurvey(app))
		r.Post(`/steps/{n:^[1-6]$}`, SubmitStep(app, guard))
		r.Post(`/{catalog:^(works|services)$}/toggle`, ToggleOption(app, guard))
		r.Post("/back", BackStep(app, guard))
		r.Post("/reset", ResetSurvey(app, guard))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Get("/reports", ListReports(app))
		r.Get("/reports/{sheet}", GetReport(app))
	})

	api.Post("/login", Login(app.BearerServer))
	api.Post("/refresh", Refresh(app.BearerServer))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}
