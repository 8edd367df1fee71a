// Package syncjob rebuilds the report workbook from the survey backend.
//
// A run fetches the full record set, recomputes every table from scratch and
// overwrites it. Failures are logged and appended to the errors sheet; a run
// never retries on its own.
package syncjob

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mbolis/barrio-survey/backend"
	"github.com/mbolis/barrio-survey/report"
	"github.com/mbolis/barrio-survey/sheets"
)

// Source is the read side of the survey backend.
type Source interface {
	FetchAll(ctx context.Context) (*backend.Page, error)
	FetchStats(ctx context.Context) (map[string]any, error)
	Health(ctx context.Context) error
	Probe(ctx context.Context, path string) (int, []byte, error)
}

var ErrNoData = errors.New("no se pudieron obtener datos de la API")

type Job struct {
	cfg    Config
	source Source
	book   sheets.Workbook
	logger *logrus.Logger
	now    func() time.Time
}

type Option func(*Job)

// WithClock replaces the wall clock used for timestamps in the tables.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

func NewJob(cfg Config, source Source, book sheets.Workbook, logger *logrus.Logger, opts ...Option) *Job {
	cfg.defaults()
	if logger == nil {
		logger = logrus.New()
	}
	j := &Job{cfg: cfg, source: source, book: book, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run performs one sync cycle. The returned error has already been logged
// and recorded in the errors sheet.
func (j *Job) Run(ctx context.Context) (err error) {
	start := j.now()
	log := j.logger.WithField("run_at", start.UTC().Format(time.RFC3339))
	log.Info("sync started")

	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
		if err != nil {
			log.WithError(err).Error("sync failed")
			j.recordError(ctx, err)
			return
		}
		log.Info("sync completed")
	}()

	page, healthy, err := j.fetch(ctx, log)
	if err != nil {
		return err
	}
	return j.write(ctx, page, healthy)
}

// fetch reads the backend under the configured timeout. The deadline ends
// here so the table rewrite is never cut short.
func (j *Job) fetch(ctx context.Context, log *logrus.Entry) (*backend.Page, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	page, fetchErr := j.source.FetchAll(ctx)
	if fetchErr != nil {
		log.WithError(fetchErr).Warn("fetch todas")
	}
	if page == nil || !page.Success {
		return nil, false, errors.WithStack(ErrNoData)
	}

	if stats, err := j.source.FetchStats(ctx); err != nil {
		log.WithError(err).Warn("fetch estadisticas")
	} else {
		log.WithField("keys", len(stats)).Debug("estadisticas")
	}

	healthy := true
	if err := j.source.Health(ctx); err != nil {
		log.WithError(err).Warn("salud")
		healthy = false
	}
	return page, healthy, nil
}

func (j *Job) write(ctx context.Context, page *backend.Page, healthy bool) error {
	records := page.Data.Encuestas
	now := j.now()
	names := j.cfg.Sheets

	if err := j.replaceData(ctx, names.Raw, report.RawHeader, report.RawRows(records)); err != nil {
		return err
	}

	tables := []struct {
		sheet  string
		header sheets.Row
		rows   []sheets.Row
	}{
		{names.Barrio, report.NeighborhoodHeader, report.NeighborhoodRows(report.Neighborhoods(records))},
		{names.Obras, report.WorksHeader, report.RankingRows(report.Works(records))},
		{names.Servicios, report.ServicesHeader, report.RankingRows(report.Services(records))},
		{names.Temporal, report.EvolutionHeader, report.EvolutionRows(report.Evolution(records))},
		{names.KPIs, report.KPIHeader, report.Summarize(records, page.Data.Page, page.Data.TotalPages, now).Rows()},
		{names.Config, report.StatusHeader, report.NewStatus(j.cfg.BaseURL, now, healthy, j.cfg.Interval).Rows()},
	}
	for _, t := range tables {
		if err := j.replace(ctx, t.sheet, t.header, t.rows); err != nil {
			return err
		}
	}

	j.logger.WithFields(logrus.Fields{
		"records": len(records),
		"healthy": healthy,
	}).Debug("tables written")
	return nil
}

// replaceData keeps row 1 and swaps every data row underneath it.
func (j *Job) replaceData(ctx context.Context, sheet string, header sheets.Row, rows []sheets.Row) error {
	last, err := j.book.LastRow(ctx, sheet)
	if err != nil {
		return errors.Wrap(err, sheet)
	}
	if last > 1 {
		if err := j.book.DeleteRows(ctx, sheet, 2, last-1); err != nil {
			return errors.Wrap(err, sheet)
		}
	}
	return errors.Wrap(j.book.WriteRows(ctx, sheet, 1, append([]sheets.Row{header}, rows...)), sheet)
}

// replace clears the whole sheet and writes header and rows.
func (j *Job) replace(ctx context.Context, sheet string, header sheets.Row, rows []sheets.Row) error {
	if err := j.book.Clear(ctx, sheet); err != nil {
		return errors.Wrap(err, sheet)
	}
	return errors.Wrap(j.book.WriteRows(ctx, sheet, 1, append([]sheets.Row{header}, rows...)), sheet)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// recordError appends err to the errors sheet, writing the header first
// when the sheet is empty. It runs on a fresh context so a cancelled run
// still gets logged.
func (j *Job) recordError(ctx context.Context, runErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.cfg.Timeout)
	defer cancel()

	stack := "No stack trace"
	var st stackTracer
	if errors.As(runErr, &st) {
		stack = fmt.Sprintf("%+v", st.StackTrace())
	}

	sheet := j.cfg.Sheets.Errores
	last, err := j.book.LastRow(ctx, sheet)
	if err != nil {
		j.logger.WithError(err).Error("errores: last row")
		return
	}
	rows := []sheets.Row{{j.now().UTC().Format(report.TimeLayout), runErr.Error(), stack}}
	if last == 0 {
		rows = append([]sheets.Row{report.ErrorHeader}, rows...)
	}
	if err := j.book.WriteRows(ctx, sheet, last+1, rows); err != nil {
		j.logger.WithError(err).Error("errores: write")
	}
}
