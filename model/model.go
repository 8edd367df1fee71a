package model

import (
	"bytes"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Survey is one citizen's answers, accumulated step by step by the wizard and
// sent to the backend as a whole.
type Survey struct {
	DNI                  string   `json:"dni"`
	Barrio               string   `json:"barrio"`
	ObrasUrgentes        []string `json:"obrasUrgentes"`
	ObrasUrgentesOtro    string   `json:"obrasUrgentesOtro"`
	ServiciosMejorar     []string `json:"serviciosMejorar"`
	ServiciosMejorarOtro string   `json:"serviciosMejorarOtro"`
	EspacioMejorar       string   `json:"espacioMejorar"`
	Propuesta            string   `json:"propuesta"`
	QuiereContacto       bool     `json:"quiereContacto"`
	NombreCompleto       string   `json:"nombreCompleto"`
	Telefono             string   `json:"telefono"`
	Email                string   `json:"email"`
	Comentarios          string   `json:"comentarios"`
	Sugerencias          string   `json:"sugerencias"`
}

// Record is a survey as the backend returns it from /todas.
type Record struct {
	ID ID `json:"id"`
	Survey
	FechaCreacion Timestamp `json:"fechaCreacion"`
	Estado        string    `json:"estado"`
}

const EstadoCompletada = "completada"

// ID accepts both JSON numbers and strings; the backend is not consistent.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*id = ID(s)
	default:
		*id = ID(b)
	}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(id))), nil
}

// timestampLayouts are tried in order; values without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a creation time as the backend writes it. Besides RFC 3339 it
// accepts the zoneless forms some rows carry.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Errorf("timestamp: %s is not a string", b)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return errors.Errorf("timestamp: unknown format %q", s)
}
