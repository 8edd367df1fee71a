package routes

import (
	"database/sql"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ajg/form"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"

	"github.com/mbolis/barrio-survey/analytics"
	"github.com/mbolis/barrio-survey/app"
	"github.com/mbolis/barrio-survey/httpx"
	"github.com/mbolis/barrio-survey/log"
	"github.com/mbolis/barrio-survey/model"
	"github.com/mbolis/barrio-survey/wizard"
)

type surveyView struct {
	wizard.State
	StepName       string `json:"stepName"`
	CaptchaSiteKey string `json:"captchaSiteKey,omitempty"`
}

const msgBusy = "Ya se está procesando una solicitud para esta encuesta"

type errorBody struct {
	Error  string              `json:"error"`
	Fields []wizard.FieldError `json:"fields,omitempty"`
}

func view(app app.App, w *wizard.Wizard) surveyView {
	v := surveyView{State: w.State(), StepName: w.Step().String()}
	if app.Captcha != nil && w.Step() == wizard.StepIdentity {
		v.CaptchaSiteKey = app.RecaptchaSiteKey
	}
	return v
}

func StartSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, "session.new_id", err)
			return
		}

		now := time.Now().UTC()
		if n, err := purgeSessions(r.Context(), app.DB, now.Add(-app.Sessions.TTL())); err != nil {
			log.Warnf("db.purge_sessions: %s", err)
		} else if n > 0 {
			log.Debugf("db.purge_sessions: %d expired", n)
		}

		wiz := wizard.New(app.WizardDeps())
		err = createSession(r.Context(), app.DB, id.String(), wiz.State(), now)
		if err != nil {
			httpx.LogInternalError(w, "db.create_session", err)
			return
		}
		if err = app.Sessions.Issue(w, id.String()); err != nil {
			httpx.LogInternalError(w, "session.issue", err)
			return
		}

		if app.Analytics != nil {
			app.Analytics.Emit("survey_started", analytics.Attrs{"session": id.String()})
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, view(app, wiz))
	}
}

func GetSurvey(app app.App) http.HandlerFunc {
	return withWizard(app, nil, func(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) bool {
		render.JSON(w, r, view(app, wiz))
		return false
	})
}

func SubmitStep(app app.App, guard *inflight) http.HandlerFunc {
	return withWizard(app, guard, func(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) bool {
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.n")
			return false
		}

		in, err := decodeStep(r, wizard.Step(n), wiz.Record())
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return false
		}

		if err = wiz.Submit(r.Context(), in); err != nil {
			writeWizardError(w, r, "survey.submit", err)
			// a failed send keeps what was typed in step 6
			return wiz.Step() == wizard.StepContact
		}
		render.JSON(w, r, view(app, wiz))
		return true
	})
}

type toggleBody struct {
	Option string `json:"option" form:"option"`
}

func ToggleOption(app app.App, guard *inflight) http.HandlerFunc {
	return withWizard(app, guard, func(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) bool {
		var body toggleBody
		if err := decodeBody(r, &body); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return false
		}

		err := wiz.Toggle(wizard.Catalog(chi.URLParam(r, "catalog")), body.Option)
		if err != nil {
			writeWizardError(w, r, "survey.toggle", err)
			// the cap notice is part of the state
			return errors.Is(err, wizard.ErrSelectionLimit)
		}
		render.JSON(w, r, view(app, wiz))
		return true
	})
}

func BackStep(app app.App, guard *inflight) http.HandlerFunc {
	return withWizard(app, guard, func(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) bool {
		if err := wiz.Back(); err != nil {
			writeWizardError(w, r, "survey.back", err)
			return false
		}
		render.JSON(w, r, view(app, wiz))
		return true
	})
}

func ResetSurvey(app app.App, guard *inflight) http.HandlerFunc {
	return withWizard(app, guard, func(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) bool {
		wiz.Reset()
		render.JSON(w, r, view(app, wiz))
		return true
	})
}

func GetCatalogs() http.HandlerFunc {
	catalogs := map[string]any{
		"barrios":      model.Barrios,
		"obras":        model.Obras,
		"servicios":    model.Servicios,
		"maxObras":     model.MaxObras,
		"maxServicios": model.MaxServicios,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, catalogs)
	}
}

// withWizard restores the caller's wizard around handle and stores its state
// back when handle reports a change. With a guard, the session is held from
// load to save and a concurrent request for it gets 409.
func withWizard(app app.App, guard *inflight, handle func(http.ResponseWriter, *http.Request, *wizard.Wizard) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := app.Sessions.Read(r)
		if err != nil {
			httpx.LogStatusJSON(w, r, http.StatusNotFound, log.DebugLevel, "session.read", errorBody{Error: "No hay una encuesta en curso"})
			return
		}

		if guard != nil {
			if !guard.acquire(id) {
				httpx.LogStatusJSON(w, r, http.StatusConflict, log.DebugLevel, "survey.busy", errorBody{Error: msgBusy})
				return
			}
			defer guard.release(id)
		}

		now := time.Now().UTC()
		state, err := loadSession(r.Context(), app.DB, id, now.Add(-app.Sessions.TTL()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				app.Sessions.Clear(w)
				httpx.LogStatusJSON(w, r, http.StatusNotFound, log.DebugLevel, "session.load", errorBody{Error: "No hay una encuesta en curso"})
			} else {
				httpx.LogInternalError(w, "db.load_session", err)
			}
			return
		}

		wiz := wizard.Restore(app.WizardDeps(), state)
		if !handle(w, r, wiz) {
			return
		}

		// the response is already out; a failed save only loses this step
		if err := saveSession(r.Context(), app.DB, id, wiz.State(), time.Now().UTC()); err != nil {
			log.Errorf("db.save_session: %s", err)
		}
	}
}

// decodeStep reads the payload for step from the request body. Steps 3 and 4
// may omit the selection, in which case the one built with toggles is kept.
func decodeStep(r *http.Request, step wizard.Step, draft model.Survey) (wizard.Input, error) {
	switch step {
	case wizard.StepIdentity:
		in, err := decodeInput[wizard.Identity](r)
		in.RemoteIP = clientIP(r)
		return in, err
	case wizard.StepNeighborhood:
		return decodeInput[wizard.Neighborhood](r)
	case wizard.StepWorks:
		in, err := decodeInput[wizard.Works](r)
		if in.Selected == nil {
			in.Selected = draft.ObrasUrgentes
		}
		return in, err
	case wizard.StepServices:
		in, err := decodeInput[wizard.Services](r)
		if in.Selected == nil {
			in.Selected = draft.ServiciosMejorar
		}
		return in, err
	case wizard.StepProposal:
		return decodeInput[wizard.Proposal](r)
	case wizard.StepContact:
		return decodeInput[wizard.Contact](r)
	}
	return nil, errors.New("unknown step")
}

func decodeInput[T wizard.Input](r *http.Request) (T, error) {
	var in T
	err := decodeBody(r, &in)
	return in, err
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		return form.NewDecoder(r.Body).Decode(dst)
	}
	return render.DecodeJSON(r.Body, dst)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeWizardError(w http.ResponseWriter, r *http.Request, code string, err error) {
	var (
		verr     *wizard.ValidationError
		conflict *wizard.ConflictError
		remote   *wizard.RemoteError
	)
	switch {
	case errors.As(err, &verr):
		httpx.LogStatusJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, code+".invalid", errorBody{Error: verr.Error(), Fields: verr.Fields()})
	case errors.Is(err, wizard.ErrSelectionLimit), errors.Is(err, wizard.ErrUnknownOption):
		httpx.LogStatusJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, code+".option", errorBody{Error: err.Error()})
	case errors.As(err, &conflict):
		httpx.LogStatusJSON(w, r, http.StatusConflict, log.DebugLevel, code+".conflict", errorBody{Error: conflict.Message})
	case errors.As(err, &remote):
		log.Warnf("%s.remote: %s", code, remote.Err)
		httpx.LogStatusJSON(w, r, http.StatusBadGateway, log.DebugLevel, code+".remote", errorBody{Error: remote.Message})
	case errors.Is(err, wizard.ErrWrongStep), errors.Is(err, wizard.ErrFinished), errors.Is(err, wizard.ErrNoPreviousStep):
		httpx.LogStatusJSON(w, r, http.StatusConflict, log.DebugLevel, code+".step", errorBody{Error: err.Error()})
	default:
		httpx.LogInternalError(w, code, err)
	}
}
