package sorting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/conductores_admin/internal/domain"
)

func salary(v float64) *float64 { return &v }

func names(list []domain.Conductor) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Nombre
	}
	return out
}

func TestResolve(t *testing.T) {
	record := map[string]interface{}{
		"nombre": "Ana",
		"licencia": map[string]interface{}{
			"categoria": "C2",
			"vence":     nil,
		},
		"documentos": []interface{}{
			map[string]interface{}{"categoria": "CEDULA"},
		},
	}

	v, ok := Resolve(record, "licencia.categoria")
	require.True(t, ok)
	assert.Equal(t, "C2", v)

	v, ok = Resolve(record, "documentos.0.categoria")
	require.True(t, ok)
	assert.Equal(t, "CEDULA", v)

	_, ok = Resolve(record, "licencia.vence")
	assert.False(t, ok, "null is undefined")

	_, ok = Resolve(record, "licencia.numero.digito")
	assert.False(t, ok)

	_, ok = Resolve(record, "nombre.primero")
	assert.False(t, ok)

	_, ok = Resolve(record, "documentos.3.categoria")
	assert.False(t, ok)

	_, ok = Resolve(nil, "nombre")
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	col := NewCollator()

	t.Run("Locale aware strings", func(t *testing.T) {
		assert.Negative(t, Compare(col, "Álvarez", "Benítez"))
		assert.Positive(t, Compare(col, "zapata", "Ñuñez"))
		assert.Negative(t, Compare(col, "Nuñez", "Ñuñez"))
	})

	t.Run("ISO dates by timestamp", func(t *testing.T) {
		assert.Negative(t, Compare(col, "2023-01-05T10:00:00Z", "2023-01-05T08:00:00-05:00"))
		assert.Positive(t, Compare(col, "2024-02-01", "2023-12-31"))
		d1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.Negative(t, Compare(col, d1, "2021-01-01"))
	})

	t.Run("Numbers", func(t *testing.T) {
		assert.Negative(t, Compare(col, 9.0, 10.0))
		assert.Negative(t, Compare(col, 9.0, "10"))
		assert.Zero(t, Compare(col, 3.0, 3))
	})

	t.Run("Mixed falls back to string forms", func(t *testing.T) {
		assert.Negative(t, Compare(col, 5.0, "abc"))
		assert.Positive(t, Compare(col, "zeta", 5.0))
	})
}

func TestSortConductores(t *testing.T) {
	list := []domain.Conductor{
		{Nombre: "Carlos", SalarioBase: salary(2000000), FechaIngreso: "2021-03-01"},
		{Nombre: "Ana"},
		{Nombre: "Beatriz", SalarioBase: salary(1500000), FechaIngreso: "2019-07-15"},
		{Nombre: "Diego", SalarioBase: salary(3000000)},
	}

	t.Run("Undefined last ascending", func(t *testing.T) {
		sorted, err := SortConductores(list, domain.SortDescriptor{Field: "salario_base", Direction: domain.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Beatriz", "Carlos", "Diego", "Ana"}, names(sorted))
	})

	t.Run("Undefined last descending", func(t *testing.T) {
		sorted, err := SortConductores(list, domain.SortDescriptor{Field: "salario_base", Direction: domain.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Diego", "Carlos", "Beatriz", "Ana"}, names(sorted))
	})

	t.Run("Dates", func(t *testing.T) {
		sorted, err := SortConductores(list, domain.SortDescriptor{Field: "fecha_ingreso", Direction: domain.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Carlos", "Beatriz", "Ana", "Diego"}, names(sorted))
	})

	t.Run("Missing field keeps input order", func(t *testing.T) {
		sorted, err := SortConductores(list, domain.SortDescriptor{Field: "no.existe", Direction: domain.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, names(list), names(sorted))
	})

	t.Run("Empty string is a value", func(t *testing.T) {
		people := []domain.Conductor{
			{Nombre: "Bruno", Email: "b@empresa.co"},
			{Nombre: "Sofia"},
			{Nombre: "Andres", Email: "a@empresa.co"},
		}
		sorted, err := SortConductores(people, domain.SortDescriptor{Field: "email", Direction: domain.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Sofia", "Andres", "Bruno"}, names(sorted))

		sorted, err = SortConductores(people, domain.SortDescriptor{Field: "email", Direction: domain.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"Bruno", "Andres", "Sofia"}, names(sorted))
	})

	t.Run("Input is not modified", func(t *testing.T) {
		_, err := SortConductores(list, domain.SortDescriptor{Field: "nombre"})
		require.NoError(t, err)
		assert.Equal(t, "Carlos", list[0].Nombre)
	})
}

func TestSortRecordsUndefinedAlwaysLast(t *testing.T) {
	for _, dir := range []domain.SortDirection{domain.SortAsc, domain.SortDesc} {
		records := []map[string]interface{}{
			{"id": 1.0},
			{"id": 2.0, "nombre": "Zoe"},
			{"id": 3.0, "nombre": nil},
			{"id": 4.0, "nombre": "Ana"},
		}
		SortRecords(records, domain.SortDescriptor{Field: "nombre", Direction: dir})

		for _, r := range records[:2] {
			_, ok := Resolve(r, "nombre")
			assert.True(t, ok, "direction %s", dir)
		}
		for _, r := range records[2:] {
			_, ok := Resolve(r, "nombre")
			assert.False(t, ok, "direction %s", dir)
		}
	}
}
