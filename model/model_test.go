package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	var ids []ID
	err := json.Unmarshal([]byte(`[12, "ab-3", null]`), &ids)
	require.NoError(t, err)
	assert.Equal(t, []ID{"12", "ab-3", ""}, ids)
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	body := `{
		"id": 7,
		"dni": "30111222",
		"barrio": "Nazer",
		"obrasUrgentes": ["Cloacas", "Ripio"],
		"serviciosMejorar": ["Volquete"],
		"quiereContacto": true,
		"nombreCompleto": "Ana Pérez",
		"fechaCreacion": "2025-01-02T10:30:00.000Z",
		"estado": "completada"
	}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(body), &rec))

	assert.Equal(t, ID("7"), rec.ID)
	assert.Equal(t, "Nazer", rec.Barrio)
	assert.Equal(t, []string{"Cloacas", "Ripio"}, rec.ObrasUrgentes)
	assert.True(t, rec.QuiereContacto)
	assert.Equal(t, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC), rec.FechaCreacion.UTC())
	assert.Equal(t, EstadoCompletada, rec.Estado)
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2025-01-02T10:30:00.000Z"`, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{`"2025-01-02T07:30:00-03:00"`, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{`"2025-01-02 10:30:00"`, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{`"2025-01-02T10:30:00"`, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{`"2025-01-02"`, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{`null`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`12`), &ts))
}

func TestRecord_ZonelessTimestamp(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","fechaCreacion":"2025-01-01 10:00:00"}`), &rec))
	assert.Equal(t, "2025-01-01T10:00:00Z", rec.FechaCreacion.UTC().Format(time.RFC3339))
}

func TestCatalogs(t *testing.T) {
	assert.Len(t, Barrios, 23)
	assert.Len(t, Obras, 12)
	assert.Len(t, Servicios, 5)
	assert.True(t, IsBarrio("Monseñor Zazpe"))
	assert.False(t, IsBarrio(""))
}
