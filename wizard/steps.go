package wizard

import (
	"html"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mbolis/barrio-survey/model"
)

type Step int

const (
	StepIdentity Step = iota + 1
	StepNeighborhood
	StepWorks
	StepServices
	StepProposal
	StepContact
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepNeighborhood:
		return "neighborhood"
	case StepWorks:
		return "works"
	case StepServices:
		return "services"
	case StepProposal:
		return "proposal"
	case StepContact:
		return "contact"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

const (
	maxOtherLen       = 60
	maxProposalLen    = 500
	maxCommentsLen    = 1000
	maxSuggestionsLen = 500
	minFreeTextLen    = 10
	minDNILen         = 7
	maxDNILen         = 8
)

var (
	reDigits = regexp.MustCompile(`^\d+$`)
	reEmail  = regexp.MustCompile(`\S+@\S+\.\S+`)
	strict   = bluemonday.StrictPolicy()
)

// Input is the validated payload of one step. The set of implementations is
// closed: one type per step that takes input.
type Input interface {
	Step() Step
	sanitized() Input
	validate(c *checker)
	apply(s *model.Survey)
}

// Identity is step 1. RemoteIP is only forwarded to the captcha verifier.
type Identity struct {
	DNI          string `json:"dni" form:"dni"`
	AcceptTerms  bool   `json:"aceptaTerminos" form:"aceptaTerminos"`
	CaptchaToken string `json:"captchaToken" form:"captchaToken"`
	RemoteIP     string `json:"-" form:"-"`
}

func (Identity) Step() Step { return StepIdentity }

func (in Identity) sanitized() Input {
	in.DNI = strings.TrimSpace(in.DNI)
	return in
}

func (in Identity) validate(c *checker) {
	n := len(in.DNI)
	if n < minDNILen || n > maxDNILen || !reDigits.MatchString(in.DNI) {
		c.fail("dni", "Por favor ingrese un DNI válido")
	}
	if !in.AcceptTerms {
		c.fail("aceptaTerminos", "Debe aceptar los términos y condiciones para continuar")
	}
}

func (in Identity) apply(s *model.Survey) {
	s.DNI = in.DNI
}

type Neighborhood struct {
	Barrio string `json:"barrio" form:"barrio"`
}

func (Neighborhood) Step() Step { return StepNeighborhood }

func (in Neighborhood) sanitized() Input {
	in.Barrio = strings.TrimSpace(in.Barrio)
	return in
}

func (in Neighborhood) validate(c *checker) {
	if !model.IsBarrio(in.Barrio) {
		c.fail("barrio", "Por favor selecciona tu barrio")
	}
}

func (in Neighborhood) apply(s *model.Survey) {
	s.Barrio = in.Barrio
}

// Works is step 3: up to three catalog works plus a free "other" entry.
type Works struct {
	Selected []string `json:"obrasUrgentes" form:"obrasUrgentes"`
	Other    string   `json:"obrasUrgentesOtro" form:"obrasUrgentesOtro"`
}

func (Works) Step() Step { return StepWorks }

func (in Works) sanitized() Input {
	in.Other = cleanText(in.Other)
	return in
}

func (in Works) validate(c *checker) {
	validateSelection(c, "obrasUrgentes", in.Selected, in.Other, model.Obras, model.MaxObras)
}

func (in Works) apply(s *model.Survey) {
	s.ObrasUrgentes = slices.Clone(in.Selected)
	s.ObrasUrgentesOtro = in.Other
}

// Services is step 4: same shape as Works with its own catalog and cap.
type Services struct {
	Selected []string `json:"serviciosMejorar" form:"serviciosMejorar"`
	Other    string   `json:"serviciosMejorarOtro" form:"serviciosMejorarOtro"`
}

func (Services) Step() Step { return StepServices }

func (in Services) sanitized() Input {
	in.Other = cleanText(in.Other)
	return in
}

func (in Services) validate(c *checker) {
	validateSelection(c, "serviciosMejorar", in.Selected, in.Other, model.Servicios, model.MaxServicios)
}

func (in Services) apply(s *model.Survey) {
	s.ServiciosMejorar = slices.Clone(in.Selected)
	s.ServiciosMejorarOtro = in.Other
}

type Proposal struct {
	Space    string `json:"espacioMejorar" form:"espacioMejorar"`
	Proposal string `json:"propuesta" form:"propuesta"`
}

func (Proposal) Step() Step { return StepProposal }

func (in Proposal) sanitized() Input {
	in.Space = cleanText(in.Space)
	in.Proposal = cleanText(in.Proposal)
	return in
}

func (in Proposal) validate(c *checker) {
	optionalText(c, "espacioMejorar", in.Space, maxProposalLen, "La descripción debe tener al menos 10 caracteres")
	optionalText(c, "propuesta", in.Proposal, maxProposalLen, "La propuesta debe tener al menos 10 caracteres")
}

func (in Proposal) apply(s *model.Survey) {
	s.EspacioMejorar = in.Space
	s.Propuesta = in.Proposal
}

// Contact is step 6, the last one before the survey is sent.
type Contact struct {
	WantsContact bool   `json:"quiereContacto" form:"quiereContacto"`
	FullName     string `json:"nombreCompleto" form:"nombreCompleto"`
	Phone        string `json:"telefono" form:"telefono"`
	Email        string `json:"email" form:"email"`
	Comments     string `json:"comentarios" form:"comentarios"`
	Suggestions  string `json:"sugerencias" form:"sugerencias"`
}

func (Contact) Step() Step { return StepContact }

func (in Contact) sanitized() Input {
	in.FullName = cleanText(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Comments = cleanText(in.Comments)
	in.Suggestions = cleanText(in.Suggestions)
	return in
}

func (in Contact) validate(c *checker) {
	if in.WantsContact {
		if in.FullName == "" {
			c.fail("nombreCompleto", "El nombre y apellido son requeridos")
		}
		if in.Phone == "" {
			c.fail("telefono", "El teléfono es requerido")
		}
		if in.Email != "" && !reEmail.MatchString(in.Email) {
			c.fail("email", "El email no es válido")
		}
	}
	optionalText(c, "comentarios", in.Comments, maxCommentsLen, "El comentario debe tener al menos 10 caracteres")
	optionalText(c, "sugerencias", in.Suggestions, maxSuggestionsLen, "La sugerencia debe tener al menos 10 caracteres")
}

func (in Contact) apply(s *model.Survey) {
	s.QuiereContacto = in.WantsContact
	s.NombreCompleto = in.FullName
	s.Telefono = in.Phone
	s.Email = in.Email
	s.Comentarios = in.Comments
	s.Sugerencias = in.Suggestions
}

func validateSelection(c *checker, field string, selected []string, other string, catalog []string, limit int) {
	if len(selected) > limit {
		c.fail(field, limitMessage(limit))
	}
	for _, opt := range selected {
		if !slices.Contains(catalog, opt) {
			c.fail(field, "Opción desconocida: "+opt)
		}
	}
	if hasDuplicates(selected) {
		c.fail(field, "Opción repetida")
	}
	if utf8.RuneCountInString(other) > maxOtherLen {
		c.fail(field+"Otro", "Máximo 60 caracteres")
	}
	if len(selected) == 0 && other == "" {
		c.fail(field, `Selecciona al menos una opción o completa "Otro"`)
	}
}

func optionalText(c *checker, field, text string, maxLen int, tooShort string) {
	n := utf8.RuneCountInString(text)
	if n > 0 && n < minFreeTextLen {
		c.fail(field, tooShort)
	}
	if n > maxLen {
		c.fail(field, "El texto supera el máximo de caracteres")
	}
}

func hasDuplicates(items []string) bool {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			return true
		}
		seen[it] = true
	}
	return false
}

// cleanText strips any markup and surrounding space from free text. The
// policy escapes entities, which are turned back into plain characters.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
