package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/mbolis/barrio-survey/analytics"
	"github.com/mbolis/barrio-survey/captcha"
	"github.com/mbolis/barrio-survey/config"
	"github.com/mbolis/barrio-survey/httpx"
	"github.com/mbolis/barrio-survey/sheets"
	"github.com/mbolis/barrio-survey/wizard"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Sessions  *httpx.Sessions
	Backend   wizard.Backend
	Captcha   captcha.Verifier // nil unless RECAPTCHA_SECRET is set
	Analytics analytics.Sink
	Reports   sheets.Workbook
}

func (a App) WizardDeps() wizard.Deps {
	return wizard.Deps{
		Backend:   a.Backend,
		Captcha:   a.Captcha,
		Analytics: a.Analytics,
	}
}
