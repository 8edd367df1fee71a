package wizard

import (
	"fmt"
	"slices"
	"time"

	"github.com/mbolis/barrio-survey/model"
)

type Catalog string

const (
	CatalogWorks    Catalog = "works"
	CatalogServices Catalog = "services"
)

// noticeTTL is how long a rejected toggle stays visible.
const noticeTTL = 2 * time.Second

func (c Catalog) rules() (step Step, options []string, limit int, ok bool) {
	switch c {
	case CatalogWorks:
		return StepWorks, model.Obras, model.MaxObras, true
	case CatalogServices:
		return StepServices, model.Servicios, model.MaxServicios, true
	}
	return 0, nil, 0, false
}

func limitMessage(limit int) string {
	return fmt.Sprintf("Sólo puedes elegir hasta %d opciones", limit)
}

// toggle adds option to selected or removes it if present. Adding beyond
// limit fails and returns selected untouched.
func toggle(selected []string, option string, limit int) ([]string, error) {
	if i := slices.Index(selected, option); i >= 0 {
		return slices.Delete(slices.Clone(selected), i, i+1), nil
	}
	if len(selected) >= limit {
		return selected, &LimitError{Limit: limit, Message: limitMessage(limit)}
	}
	return append(slices.Clone(selected), option), nil
}
