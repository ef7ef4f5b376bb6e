package service

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/stats"
	"github.com/locvowork/conductores_admin/internal/store"
	"github.com/locvowork/conductores_admin/pkg/simpleexcel"
)

//go:embed templates/conductores.yaml
var conductoresTemplate []byte

type estadoRow struct {
	Estado     string
	Cantidad   int
	Porcentaje int
}

type indicadorRow struct {
	Indicador string
	Valor     int
}

// Export builds the xlsx workbook for the view's loaded page.
func (s *ConductorService) Export(view *store.RecordStore) (*simpleexcel.DataExporter, error) {
	exp, err := simpleexcel.NewDataExporterFromYAMLBytes(conductoresTemplate)
	if err != nil {
		return nil, fmt.Errorf("load export template: %w", err)
	}

	records := view.Snapshot().Records
	rows, err := simpleexcel.ConvertToDynamicData(records)
	if err != nil {
		return nil, fmt.Errorf("flatten conductores: %w", err)
	}
	summary := stats.Compute(records)

	estados := make([]estadoRow, 0, len(domain.Estados))
	for _, e := range domain.Estados {
		estados = append(estados, estadoRow{
			Estado:     string(e),
			Cantidad:   summary.Counts[e],
			Porcentaje: summary.PorcentajePorEstado[e],
		})
	}
	indicadores := []indicadorRow{
		{"Total", summary.Total},
		{"Activos", summary.Activos},
		{"Temporalmente fuera", summary.TemporalmenteFuera},
		{"Inactivos", summary.Inactivos},
		{"% activos", summary.PorcentajeActivos},
		{"Eficiencia operacional %", summary.EficienciaOperacional},
		{"Utilización %", summary.Utilizacion},
	}

	exp.BindSectionData("conductores", rows).
		BindSectionData("estados", estados).
		BindSectionData("indicadores", indicadores)
	return exp, nil
}

// WriteExport streams the view's workbook as an attachment.
func (s *ConductorService) WriteExport(w http.ResponseWriter, view *store.RecordStore, filename string) error {
	exp, err := s.Export(view)
	if err != nil {
		return err
	}
	return exp.StreamToResponse(w, filename)
}
