package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/conductores_admin/internal/domain"
)

func validForm() ConductorForm {
	return ConductorForm{
		Nombre:               " Juan ",
		Apellido:             "Pérez",
		TipoIdentificacion:   "cc",
		NumeroIdentificacion: "1032456789",
		Email:                "JUAN@EMPRESA.CO",
		Cargo:                "conductor",
		FechaIngreso:         "2022-04-01",
		TipoContrato:         "indefinido",
		SedeTrabajo:          "Bogotá",
		NumeroLicencia:       "LIC-998877",
		CategoriaLicencia:    "c2",
		VigenciaLicencia:     "2027-01-01",
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, domain.KindValidation, apiErr.Kind)
	out := make([]string, len(apiErr.Fields))
	for i, f := range apiErr.Fields {
		out[i] = f.Field
	}
	return out
}

func TestConductorFormPrepare(t *testing.T) {
	t.Run("Valid driver", func(t *testing.T) {
		f := validForm()
		require.NoError(t, f.Prepare())
		assert.Equal(t, "Juan", f.Nombre)
		assert.Equal(t, "CC", f.TipoIdentificacion)
		assert.Equal(t, "juan@empresa.co", f.Email)
		assert.Equal(t, "C2", f.CategoriaLicencia)
	})

	t.Run("Required fields", func(t *testing.T) {
		f := ConductorForm{}
		err := f.Prepare()
		names := fieldNames(t, err)
		assert.Contains(t, names, "nombre")
		assert.Contains(t, names, "numero_identificacion")
		assert.Contains(t, names, "sede_trabajo")
	})

	t.Run("License section required for drivers", func(t *testing.T) {
		f := validForm()
		f.NumeroLicencia = ""
		f.VigenciaLicencia = ""
		names := fieldNames(t, f.Prepare())
		assert.ElementsMatch(t, []string{"numero_licencia_conduccion", "vigencia_licencia"}, names)
	})

	t.Run("License section dropped for other positions", func(t *testing.T) {
		f := validForm()
		f.Cargo = "auxiliar"
		f.NumeroLicencia = ""
		require.NoError(t, f.Prepare())
		assert.Empty(t, f.CategoriaLicencia)
	})

	t.Run("Fixed-term contract needs a term", func(t *testing.T) {
		f := validForm()
		f.TipoContrato = "fijo"
		names := fieldNames(t, f.Prepare())
		assert.Equal(t, []string{"termino_contrato"}, names)

		f.TerminoContrato = "12 meses"
		require.NoError(t, f.Prepare())
	})

	t.Run("Format errors", func(t *testing.T) {
		f := validForm()
		f.Email = "no-es-correo"
		f.FechaIngreso = "01/04/2022"
		neg := -1.0
		f.SalarioBase = &neg
		names := fieldNames(t, f.Prepare())
		assert.ElementsMatch(t, []string{"email", "fecha_ingreso", "salario_base"}, names)
	})
}

func TestToConductor(t *testing.T) {
	f := validForm()
	require.NoError(t, f.Prepare())
	base := domain.Conductor{ID: 7, Documentos: []domain.Documento{{Categoria: domain.CategoriaCedula, S3Key: "k"}}}

	c := f.ToConductor(base)
	assert.Equal(t, int64(7), c.ID)
	assert.Len(t, c.Documentos, 1)
	assert.Equal(t, "Juan", c.Nombre)
	assert.Equal(t, domain.EstadoDisponible, c.Estado)
}

func TestMissingDocuments(t *testing.T) {
	has := map[domain.CategoriaDocumento]bool{domain.CategoriaCedula: true}
	missing := MissingDocuments(func(c domain.CategoriaDocumento) bool { return has[c] })
	require.Len(t, missing, 2)
	assert.Equal(t, "documento_LICENCIA", missing[0].Field)
	assert.Equal(t, "documento_CONTRATO", missing[1].Field)
}
