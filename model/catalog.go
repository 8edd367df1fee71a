package model

import "slices"

var Barrios = []string{
	"Juan Pablo II",
	"Guillermo Decker",
	"General López / Cooperativas",
	"Instituto",
	"Pedro de Vega",
	"Nuevo",
	"Malvinas Argentinas",
	"El Silencio",
	"9 de Julio",
	"España",
	"Nazer",
	"Re",
	"Irigoyen",
	"Belgrano",
	"Quilmes",
	"Las Américas",
	"Residencial Las Américas",
	"Primera Junta",
	"Nueva Esperanza",
	"Estadio Municipal",
	"San Vicente",
	"Unión",
	"Monseñor Zazpe",
}

var Obras = []string{
	"Pavimentación de calles",
	"Cordón cuneta",
	"Alumbrado público",
	"Plazas y espacios verdes",
	"Desagües pluviales",
	"Veredas y rampas accesibles",
	"Agua potable",
	"Cloacas",
	"Ripio",
	"Seguridad (cámaras, alarmas comunitarias)",
	"Señalización y cartelería",
	"Limpieza",
}

var Servicios = []string{
	"Limpieza / recolección de residuos",
	"Mantenimiento de los espacios verdes",
	"Mantenimiento de las calles",
	"Arbolado / poda",
	"Volquete",
}

const (
	MaxObras     = 3
	MaxServicios = 2
)

func IsBarrio(name string) bool {
	return slices.Contains(Barrios, name)
}
