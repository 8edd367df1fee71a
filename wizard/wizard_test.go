package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/barrio-survey/analytics"
	"github.com/mbolis/barrio-survey/backend"
	"github.com/mbolis/barrio-survey/captcha"
	"github.com/mbolis/barrio-survey/model"
)

type fakeBackend struct {
	check      backend.IdentityCheck
	checkErr   error
	persistErr error
	checked    []string
	persisted  []model.Survey
}

func (f *fakeBackend) CheckIdentity(ctx context.Context, dni string) (backend.IdentityCheck, error) {
	f.checked = append(f.checked, dni)
	return f.check, f.checkErr
}

func (f *fakeBackend) PersistSurvey(ctx context.Context, s model.Survey) (backend.Receipt, error) {
	if f.persistErr != nil {
		return backend.Receipt{}, f.persistErr
	}
	f.persisted = append(f.persisted, s)
	return backend.Receipt{Success: true, Message: "ok"}, nil
}

type fakeCaptcha struct{ err error }

func (f fakeCaptcha) Verify(ctx context.Context, token, remoteIP string) error { return f.err }

type events struct{ names []string }

func (e *events) Emit(name string, attrs analytics.Attrs) { e.names = append(e.names, name) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newWizard(b *fakeBackend) (*Wizard, *events, *clock) {
	ev := &events{}
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(Deps{Backend: b, Analytics: ev, Now: clk.now}), ev, clk
}

var (
	validIdentity = Identity{DNI: "30111222", AcceptTerms: true}
	validBarrio   = Neighborhood{Barrio: "Nazer"}
	validWorks    = Works{Selected: []string{"Cloacas", "Ripio"}}
	validServices = Services{Other: "Bacheo nocturno"}
	validProposal = Proposal{Proposal: "Una plaza con juegos para chicos"}
	validContact  = Contact{WantsContact: true, FullName: "Ana Pérez", Phone: "3491 400000", Email: "ana@example.com"}
)

func walkTo(t *testing.T, w *Wizard, step Step) {
	t.Helper()
	inputs := []Input{validIdentity, validBarrio, validWorks, validServices, validProposal, validContact}
	for _, in := range inputs[:step-1] {
		require.NoError(t, w.Submit(context.Background(), in))
	}
	require.Equal(t, step, w.Step())
}

func TestWizard_FullFlow(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}
	w, ev, clk := newWizard(b)

	walkTo(t, w, StepConfirmation)

	require.Len(t, b.persisted, 1)
	got := b.persisted[0]
	assert.Equal(t, "30111222", got.DNI)
	assert.Equal(t, "Nazer", got.Barrio)
	assert.Equal(t, []string{"Cloacas", "Ripio"}, got.ObrasUrgentes)
	assert.Equal(t, "Bacheo nocturno", got.ServiciosMejorarOtro)
	assert.Equal(t, "Una plaza con juegos para chicos", got.Propuesta)
	assert.True(t, got.QuiereContacto)

	st := w.State()
	assert.True(t, st.Submitted)
	assert.Equal(t, clk.t, st.SubmittedAt)
	require.NotNil(t, st.Receipt)
	assert.Equal(t, "ok", st.Receipt.Message)
	assert.Contains(t, ev.names, "survey_submitted")

	assert.ErrorIs(t, w.Submit(context.Background(), validContact), ErrFinished)
}

func TestWizard_WrongStep(t *testing.T) {
	w, _, _ := newWizard(&fakeBackend{check: backend.IdentityCheck{CanContinue: true}})
	assert.ErrorIs(t, w.Submit(context.Background(), validBarrio), ErrWrongStep)
	assert.Equal(t, StepIdentity, w.Step())
}

func TestWizard_IdentityRejected(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: false}}
	w, ev, _ := newWizard(b)

	err := w.Submit(context.Background(), validIdentity)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, msgDNITaken, conflict.Message)
	assert.Equal(t, StepIdentity, w.Step())
	assert.Empty(t, w.Record().DNI)
	assert.Contains(t, ev.names, "survey_dni_rejected")
}

func TestWizard_IdentityRejectedWithMessage(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: false, Message: "ya participaste"}}
	w, _, _ := newWizard(b)

	err := w.Submit(context.Background(), validIdentity)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "ya participaste", conflict.Message)
}

func TestWizard_IdentityTransportError(t *testing.T) {
	b := &fakeBackend{checkErr: errors.New("connection refused")}
	w, _, _ := newWizard(b)

	err := w.Submit(context.Background(), validIdentity)
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, msgDNIRetry, remote.Message)
	assert.Equal(t, StepIdentity, w.Step())
}

func TestWizard_LocalValidationSkipsNetwork(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}
	w, _, _ := newWizard(b)

	err := w.Submit(context.Background(), Identity{DNI: "12ab", AcceptTerms: false})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields(), 2)
	assert.Empty(t, b.checked)
}

func TestWizard_Captcha(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}

	w := New(Deps{Backend: b, Captcha: fakeCaptcha{}})
	var verr *ValidationError
	require.True(t, errors.As(w.Submit(context.Background(), validIdentity), &verr))
	assert.Equal(t, "captchaToken", verr.Fields()[0].Field)

	w = New(Deps{Backend: b, Captcha: fakeCaptcha{err: captcha.ErrChallengeFailed}})
	in := validIdentity
	in.CaptchaToken = "tok"
	require.True(t, errors.As(w.Submit(context.Background(), in), &verr))
	assert.Empty(t, b.checked)

	w = New(Deps{Backend: b, Captcha: fakeCaptcha{}})
	require.NoError(t, w.Submit(context.Background(), in))
	assert.Equal(t, StepNeighborhood, w.Step())
}

func TestWizard_PersistFailureKeepsStep(t *testing.T) {
	b := &fakeBackend{
		check:      backend.IdentityCheck{CanContinue: true},
		persistErr: &backend.StatusError{Code: 500, Message: "base de datos no disponible"},
	}
	w, _, _ := newWizard(b)
	walkTo(t, w, StepContact)

	err := w.Submit(context.Background(), validContact)
	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "base de datos no disponible", remote.Message)
	assert.Equal(t, StepContact, w.Step())
	assert.False(t, w.State().Submitted)
	assert.Equal(t, "Ana Pérez", w.Record().NombreCompleto)

	// user-initiated retry
	b.persistErr = nil
	require.NoError(t, w.Submit(context.Background(), validContact))
	assert.Equal(t, StepConfirmation, w.Step())
}

func TestWizard_PersistsOnlyOnce(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}
	w, _, _ := newWizard(b)
	walkTo(t, w, StepConfirmation)

	require.NoError(t, w.Back())
	assert.Equal(t, StepContact, w.Step())
	require.NoError(t, w.Submit(context.Background(), validContact))

	assert.Equal(t, StepConfirmation, w.Step())
	assert.Len(t, b.persisted, 1)
}

func TestWizard_BackPreservesData(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}
	w, _, _ := newWizard(b)
	walkTo(t, w, StepProposal)
	before := w.Record()

	for step := StepProposal; step > StepIdentity; step-- {
		require.NoError(t, w.Back())
		assert.Equal(t, step-1, w.Step())
		assert.Equal(t, before, w.Record())
	}
	assert.ErrorIs(t, w.Back(), ErrNoPreviousStep)

	// moving forward again only overwrites the step being submitted
	require.NoError(t, w.Submit(context.Background(), validIdentity))
	require.NoError(t, w.Submit(context.Background(), Neighborhood{Barrio: "Quilmes"}))
	rec := w.Record()
	assert.Equal(t, "Quilmes", rec.Barrio)
	assert.Equal(t, before.ObrasUrgentes, rec.ObrasUrgentes)
	assert.Equal(t, before.ServiciosMejorarOtro, rec.ServiciosMejorarOtro)
}

func TestWizard_Reset(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}
	w, ev, _ := newWizard(b)
	walkTo(t, w, StepConfirmation)

	w.Reset()
	assert.Equal(t, StepIdentity, w.Step())
	assert.Equal(t, model.Survey{}, w.Record())
	assert.False(t, w.State().Submitted)
	assert.Contains(t, ev.names, "survey_reset")
}

func TestWizard_ToggleCap(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}
	w, _, clk := newWizard(b)
	walkTo(t, w, StepWorks)
	w.state.Draft.ObrasUrgentes = nil

	for _, o := range []string{"Cloacas", "Ripio", "Limpieza"} {
		require.NoError(t, w.Toggle(CatalogWorks, o))
	}
	err := w.Toggle(CatalogWorks, "Agua potable")
	assert.ErrorIs(t, err, ErrSelectionLimit)
	assert.Equal(t, []string{"Cloacas", "Ripio", "Limpieza"}, w.Record().ObrasUrgentes)

	st := w.State()
	require.NotNil(t, st.Notice)
	assert.Equal(t, "Sólo puedes elegir hasta 3 opciones", st.Notice.Message)

	clk.t = clk.t.Add(2 * time.Second)
	assert.Nil(t, w.State().Notice)

	require.NoError(t, w.Toggle(CatalogWorks, "Ripio"))
	require.NoError(t, w.Toggle(CatalogWorks, "Agua potable"))
	assert.Equal(t, []string{"Cloacas", "Limpieza", "Agua potable"}, w.Record().ObrasUrgentes)

	assert.ErrorIs(t, w.Toggle(CatalogServices, "Volquete"), ErrWrongStep)
	assert.ErrorIs(t, w.Toggle(CatalogWorks, "Teleférico"), ErrUnknownOption)
}

func TestWizard_AnalyticsNeverBlocksFlow(t *testing.T) {
	b := &fakeBackend{check: backend.IdentityCheck{CanContinue: true}}
	sink := analytics.NewAsync(analytics.Noop{}, 0)
	defer sink.Close()

	w := New(Deps{Backend: b, Analytics: sink})
	walkTo(t, w, StepConfirmation)
}
