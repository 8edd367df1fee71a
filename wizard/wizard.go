// Package wizard implements the seven-step survey as a linear state machine.
//
// Steps move strictly forward one at a time, each gated by its own local
// validation; step 1 also asks the backend whether the identity may answer
// and step 6 sends the finished survey. Going back one step is always allowed
// and never discards what was entered. Step 7 is terminal until Reset.
package wizard

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/mbolis/barrio-survey/analytics"
	"github.com/mbolis/barrio-survey/backend"
	"github.com/mbolis/barrio-survey/captcha"
	"github.com/mbolis/barrio-survey/model"
)

const (
	msgDNITaken       = "Este DNI ya ha completado la encuesta anteriormente"
	msgDNIRetry       = "Error al validar el DNI. Por favor intente nuevamente."
	msgSubmitRetry    = "Error al enviar la encuesta. Por favor intente nuevamente."
	msgCaptchaMissing = "Por favor completá la verificación"
	msgCaptchaFailed  = "La verificación no fue válida, intentá nuevamente"
)

// Backend is the part of the survey API the wizard needs.
type Backend interface {
	CheckIdentity(ctx context.Context, dni string) (backend.IdentityCheck, error)
	PersistSurvey(ctx context.Context, survey model.Survey) (backend.Receipt, error)
}

type Deps struct {
	Backend Backend
	// Captcha is nil when human verification is not configured.
	Captcha   captcha.Verifier
	Analytics analytics.Sink
	Now       func() time.Time
}

// Notice is a transient message shown until Until.
type Notice struct {
	Message string    `json:"message"`
	Until   time.Time `json:"until"`
}

// State is everything needed to resume a wizard.
type State struct {
	Step        Step             `json:"step"`
	Draft       model.Survey     `json:"draft"`
	Submitted   bool             `json:"submitted"`
	SubmittedAt time.Time        `json:"submittedAt,omitempty"`
	Receipt     *backend.Receipt `json:"receipt,omitempty"`
	Notice      *Notice          `json:"notice,omitempty"`
}

// Wizard drives one respondent through the survey. It is not safe for
// concurrent use; callers serialise access per respondent.
type Wizard struct {
	deps  Deps
	state State
}

func New(deps Deps) *Wizard {
	return Restore(deps, State{Step: StepIdentity})
}

func Restore(deps Deps, state State) *Wizard {
	if deps.Analytics == nil {
		deps.Analytics = analytics.Noop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if state.Step < StepIdentity || state.Step > StepConfirmation {
		state.Step = StepIdentity
	}
	return &Wizard{deps: deps, state: state}
}

func (w *Wizard) Step() Step {
	return w.state.Step
}

// State returns a snapshot; an expired notice is left out.
func (w *Wizard) State() State {
	st := w.state
	if st.Notice != nil && !w.deps.Now().Before(st.Notice.Until) {
		st.Notice = nil
	}
	return st
}

func (w *Wizard) Record() model.Survey {
	return w.state.Draft
}

// Submit validates in and, when it passes, merges it into the draft and
// advances one step.
func (w *Wizard) Submit(ctx context.Context, in Input) error {
	if w.state.Step == StepConfirmation {
		return ErrFinished
	}
	if in.Step() != w.state.Step {
		return ErrWrongStep
	}

	in = in.sanitized()
	c := &checker{step: w.state.Step}
	in.validate(c)
	if err := c.err(); err != nil {
		w.emit("survey_validation_error", analytics.Attrs{"step": int(w.state.Step), "fields": fieldNames(err)})
		return err
	}

	var err error
	switch v := in.(type) {
	case Identity:
		err = w.submitIdentity(ctx, v)
	case Contact:
		err = w.submitContact(ctx, v)
	default:
		in.apply(&w.state.Draft)
	}
	if err != nil {
		return err
	}

	w.emit("survey_step_completed", analytics.Attrs{"step": int(w.state.Step)})
	w.state.Step++
	w.state.Notice = nil
	return nil
}

func (w *Wizard) submitIdentity(ctx context.Context, in Identity) error {
	if w.deps.Captcha != nil {
		c := &checker{step: StepIdentity}
		if in.CaptchaToken == "" {
			c.fail("captchaToken", msgCaptchaMissing)
			return c.err()
		}
		if err := w.deps.Captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
			if errors.Is(err, captcha.ErrChallengeFailed) {
				c.fail("captchaToken", msgCaptchaFailed)
				return c.err()
			}
			w.emit("survey_remote_error", analytics.Attrs{"step": int(StepIdentity), "op": "captcha"})
			return &RemoteError{Op: "captcha", Message: msgDNIRetry, Err: err}
		}
	}

	check, err := w.deps.Backend.CheckIdentity(ctx, in.DNI)
	if err != nil {
		w.emit("survey_remote_error", analytics.Attrs{"step": int(StepIdentity), "op": "check_identity"})
		return &RemoteError{Op: "check_identity", Message: msgDNIRetry, Err: err}
	}
	if !check.CanContinue {
		w.emit("survey_dni_rejected", nil)
		msg := check.Message
		if msg == "" {
			msg = msgDNITaken
		}
		return &ConflictError{Message: msg}
	}

	in.apply(&w.state.Draft)
	return nil
}

// submitContact sends the survey once. After a successful send, returning
// to this step and submitting again only moves forward.
func (w *Wizard) submitContact(ctx context.Context, in Contact) error {
	in.apply(&w.state.Draft)
	if w.state.Submitted {
		return nil
	}

	receipt, err := w.deps.Backend.PersistSurvey(ctx, w.state.Draft)
	if err != nil {
		w.emit("survey_remote_error", analytics.Attrs{"step": int(StepContact), "op": "persist"})
		msg := msgSubmitRetry
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) && statusErr.Message != "" {
			msg = statusErr.Message
		}
		return &RemoteError{Op: "persist", Message: msg, Err: err}
	}

	w.state.Submitted = true
	w.state.SubmittedAt = w.deps.Now()
	w.state.Receipt = &receipt
	w.emit("survey_submitted", analytics.Attrs{"barrio": w.state.Draft.Barrio})
	return nil
}

// Back moves to the previous step, keeping every value entered so far.
func (w *Wizard) Back() error {
	if w.state.Step <= StepIdentity {
		return ErrNoPreviousStep
	}
	w.emit("survey_back", analytics.Attrs{"from": int(w.state.Step)})
	w.state.Step--
	w.state.Notice = nil
	return nil
}

// Reset starts over at step 1 with an empty record.
func (w *Wizard) Reset() {
	w.state = State{Step: StepIdentity}
	w.emit("survey_reset", nil)
}

// Toggle flips one option of the current step's catalog selection. Adding
// past the cap leaves the selection as it was and raises a short-lived notice.
func (w *Wizard) Toggle(catalog Catalog, option string) error {
	step, options, limit, ok := catalog.rules()
	if !ok || step != w.state.Step {
		return ErrWrongStep
	}
	if !slices.Contains(options, option) {
		return ErrUnknownOption
	}

	sel := &w.state.Draft.ObrasUrgentes
	if catalog == CatalogServices {
		sel = &w.state.Draft.ServiciosMejorar
	}

	next, err := toggle(*sel, option, limit)
	if err != nil {
		w.state.Notice = &Notice{Message: err.Error(), Until: w.deps.Now().Add(noticeTTL)}
		return err
	}
	*sel = next
	return nil
}

func (w *Wizard) emit(name string, attrs analytics.Attrs) {
	w.deps.Analytics.Emit(name, attrs)
}

func fieldNames(err error) []string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	fields := verr.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return names
}
