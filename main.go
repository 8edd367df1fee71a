package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/barrio-survey/analytics"
	"github.com/mbolis/barrio-survey/app"
	"github.com/mbolis/barrio-survey/backend"
	"github.com/mbolis/barrio-survey/captcha"
	"github.com/mbolis/barrio-survey/config"
	"github.com/mbolis/barrio-survey/database"
	"github.com/mbolis/barrio-survey/httpx"
	"github.com/mbolis/barrio-survey/log"
	"github.com/mbolis/barrio-survey/routes"
	"github.com/mbolis/barrio-survey/sheets"
)

const analyticsBuffer = 256

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.AdminUser != "" {
		if err = httpx.UpsertAdmin(db, cfg.AdminUser, cfg.AdminPassword); err != nil {
			log.Fatal("main.db.admin:", err)
		}
	}

	events := analytics.NewAsync(analytics.LogSink{Logger: log.Logger}, analyticsBuffer)
	defer events.Close()

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg.TokenSecret, cfg.TokenTTL),
		Config:       cfg,
		Sessions:     httpx.NewSessions(cfg.TokenSecret, cfg.SessionTTL),
		Backend:      backend.New(cfg.BackendURL, nil),
		Analytics:    events,
		Reports:      sheets.NewSQLite(db),
	}
	if cfg.RecaptchaSecret != "" {
		app.Captcha = captcha.NewRecaptcha(cfg.RecaptchaSecret)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := routes.Wire(ctx, app)

	err = runServer(ctx, cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
	if dropped := events.Dropped(); dropped > 0 {
		log.Warnf("main.analytics: %d events dropped", dropped)
	}
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("main.server.shutdown: %s", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
