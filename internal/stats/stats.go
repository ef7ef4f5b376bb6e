package stats

import (
	"math"

	"github.com/locvowork/conductores_admin/internal/domain"
)

// Summary is derived from the records currently loaded in a view.
type Summary struct {
	Total  int                   `json:"total"`
	Counts map[domain.Estado]int `json:"counts"`

	Activos            int `json:"activos"`
	TemporalmenteFuera int `json:"temporalmente_fuera"`
	Inactivos          int `json:"inactivos"`

	PorcentajeActivos    int                   `json:"porcentaje_activos"`
	PorcentajeTemporales int                   `json:"porcentaje_temporales"`
	PorcentajeInactivos  int                   `json:"porcentaje_inactivos"`
	PorcentajePorEstado  map[domain.Estado]int `json:"porcentaje_por_estado"`

	// EficienciaOperacional is servicio/total; Utilizacion is servicio/(servicio+disponible).
	EficienciaOperacional int `json:"eficiencia_operacional"`
	Utilizacion           int `json:"utilizacion"`
}

// Compute aggregates per-status counts. Unknown status values land in the
// inactive bucket so the three buckets always add up to Total.
func Compute(records []domain.Conductor) Summary {
	s := Summary{
		Total:               len(records),
		Counts:              make(map[domain.Estado]int, len(domain.Estados)),
		PorcentajePorEstado: make(map[domain.Estado]int, len(domain.Estados)),
	}
	for _, e := range domain.Estados {
		s.Counts[e] = 0
	}

	for _, r := range records {
		switch r.Estado {
		case domain.EstadoServicio, domain.EstadoDisponible:
			s.Activos++
		case domain.EstadoDescanso, domain.EstadoVacaciones, domain.EstadoIncapacidad:
			s.TemporalmenteFuera++
		default:
			s.Inactivos++
		}
		if _, known := s.Counts[r.Estado]; known {
			s.Counts[r.Estado]++
		}
	}

	s.PorcentajeActivos = percent(s.Activos, s.Total)
	s.PorcentajeTemporales = percent(s.TemporalmenteFuera, s.Total)
	s.PorcentajeInactivos = percent(s.Inactivos, s.Total)
	for e, n := range s.Counts {
		s.PorcentajePorEstado[e] = percent(n, s.Total)
	}

	servicio := s.Counts[domain.EstadoServicio]
	s.EficienciaOperacional = percent(servicio, s.Total)
	s.Utilizacion = percent(servicio, servicio+s.Counts[domain.EstadoDisponible])

	return s
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(whole)))
}
