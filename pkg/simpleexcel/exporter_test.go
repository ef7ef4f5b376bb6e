package simpleexcel

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const reportYAML = `
sheets:
  - name: "Personas"
    sections:
      - id: "personas"
        title: "Listado"
        show_header: true
        auto_filter: true
        header_style:
          font: { bold: true, color: "#FFFFFF" }
          fill: { color: "#1F4E78" }
        columns:
          - { field_name: "nombre", header: "Nombre", width: 20 }
          - { field_name: "salario", header: "Salario", num_fmt: 4 }
          - { field_name: "sede.ciudad", header: "Ciudad" }
  - name: "Resumen"
    sections:
      - id: "resumen"
        show_header: true
        columns:
          - { field_name: "Label", header: "Indicador" }
          - { field_name: "Value", header: "Valor" }
`

type summaryRow struct {
	Label string
	Value int
}

func TestDataExporterFromYAML(t *testing.T) {
	exp, err := NewDataExporterFromYAMLBytes([]byte(reportYAML))
	require.NoError(t, err)

	exp.BindSectionData("personas", []map[string]interface{}{
		{"nombre": "Ana", "salario": 1500000.5, "sede": map[string]interface{}{"ciudad": "Bogotá"}},
		{"nombre": "Luis", "salario": nil},
	})
	exp.BindSectionData("resumen", []summaryRow{{"Total", 2}})

	f, err := exp.BuildExcel()
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Personas", "Resumen"}, f.GetSheetList())

	title, _ := f.GetCellValue("Personas", "A1")
	assert.Equal(t, "Listado", title)
	header, _ := f.GetCellValue("Personas", "B2")
	assert.Equal(t, "Salario", header)
	name, _ := f.GetCellValue("Personas", "A3")
	assert.Equal(t, "Ana", name)
	city, _ := f.GetCellValue("Personas", "C3")
	assert.Equal(t, "Bogotá", city)
	missing, _ := f.GetCellValue("Personas", "B4")
	assert.Empty(t, missing)

	width, err := f.GetColWidth("Personas", "A")
	require.NoError(t, err)
	assert.Equal(t, 20.0, width)

	total, _ := f.GetCellValue("Resumen", "B2")
	assert.Equal(t, "2", total)
}

func TestDataExporterRejectsEmptyTemplate(t *testing.T) {
	_, err := NewDataExporterFromYAMLBytes([]byte("sheets: []\n"))
	require.Error(t, err)
}

func TestStreamToResponse(t *testing.T) {
	exp, err := NewDataExporterFromYAMLBytes([]byte(reportYAML))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, exp.StreamToResponse(rec, "conductores.xlsx"))
	assert.Equal(t, ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "conductores.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 2)
}

func TestConvertToDynamicData(t *testing.T) {
	type item struct {
		ID     int               `json:"id"`
		Nombre string            `json:"nombre"`
		Precio *float64          `json:"precio,omitempty"`
		Tags   []string          `json:"tags"`
		Meta   map[string]string `json:"meta"`
		Oculto string            `json:"-"`
		Plain  bool
	}
	precio := 9.5
	out, err := ConvertToDynamicData([]item{
		{ID: 1, Nombre: "a", Precio: &precio, Meta: map[string]string{"color": "rojo"}, Plain: true},
		{ID: 2, Nombre: "b"},
	})
	require.NoError(t, err)

	rows := out.([]map[string]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]interface{}{
		"id": 1, "nombre": "a", "precio": 9.5, "meta_color": "rojo", "Plain": true,
	}, rows[0])
	assert.Nil(t, rows[1]["precio"])
	_, hasTags := rows[0]["tags"]
	assert.False(t, hasTags)

	_, err = ConvertToDynamicData(42)
	require.Error(t, err)
}
