package syncjob

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/mbolis/barrio-survey/backend"
)

const snippetLen = 100

// EndpointReport is the outcome of probing one backend endpoint.
type EndpointReport struct {
	Path       string `json:"path"`
	Status     int    `json:"status"`
	OK         bool   `json:"ok"`
	Snippet    string `json:"snippet"`
	Err        string `json:"error,omitempty"`
	Records    int    `json:"records,omitempty"`
	TotalPages int    `json:"totalPages,omitempty"`
}

// Smoke probes every configured endpoint and reports what came back. It
// never touches the workbook.
func (j *Job) Smoke(ctx context.Context) []EndpointReport {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	reports := make([]EndpointReport, 0, len(j.cfg.Endpoints))
	for _, path := range j.cfg.Endpoints {
		rep := EndpointReport{Path: path}
		status, body, err := j.source.Probe(ctx, path)
		rep.Status = status
		rep.Snippet = truncate(string(body), snippetLen)
		switch {
		case err != nil:
			rep.Err = err.Error()
		case status == http.StatusOK:
			rep.OK = true
			if path == backend.PathTodas {
				var page backend.Page
				if json.Unmarshal(body, &page) == nil && page.Success {
					rep.Records = len(page.Data.Encuestas)
					rep.TotalPages = page.Data.TotalPages
				}
			}
		}

		j.logger.WithFields(logrus.Fields{
			"path":    path,
			"status":  rep.Status,
			"ok":      rep.OK,
			"records": rep.Records,
		}).Info("smoke")
		reports = append(reports, rep)
	}
	return reports
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
