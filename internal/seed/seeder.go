package seed

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/logger"
)

// Preset names a dataset size.
type Preset string

const (
	PresetSmall  Preset = "small"
	PresetMedium Preset = "medium"
	PresetLarge  Preset = "large"
	PresetXLarge Preset = "xlarge"
)

// CountFor returns how many conductores a preset creates.
func CountFor(p Preset) int {
	switch p {
	case PresetSmall:
		return 12
	case PresetMedium:
		return 60
	case PresetLarge:
		return 240
	case PresetXLarge:
		return 1000
	default:
		return 60
	}
}

var (
	nombres   = []string{"Juan", "Carlos", "Luis", "Andrés", "Jorge", "Miguel", "Diana", "Paola", "Camila", "Sandra", "Óscar", "Ángela"}
	apellidos = []string{"Pérez", "Gómez", "Rodríguez", "Martínez", "López", "García", "Díaz", "Ramírez", "Torres", "Vargas", "Álvarez", "Muñoz"}
	sedes     = []string{"Bogotá", "Medellín", "Cali", "Barranquilla", "Bucaramanga", "Pereira"}
	cargos    = []string{"CONDUCTOR", "CONDUCTOR", "CONDUCTOR", "AUXILIAR", "COORDINADOR"}
	contratos = []string{"INDEFINIDO", "FIJO", "OBRA_LABOR", "PRESTACION_SERVICIOS"}
	terminos  = []string{"3 meses", "6 meses", "12 meses"}
	tiposID   = []string{"CC", "CC", "CC", "CE", "PA"}
	generos   = []string{"M", "F", "O"}
	sangre    = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	licencias = []string{"B1", "B2", "C1", "C2", "C3"}
	eps       = []string{"Sura", "Sanitas", "Nueva EPS", "Compensar"}
	pensiones = []string{"Porvenir", "Protección", "Colfondos", "Colpensiones"}
)

// Seeder creates generated conductores through the upstream API.
type Seeder struct {
	repo    domain.ConductorRepository
	rnd     *rand.Rand
	workers int
}

func NewSeeder(repo domain.ConductorRepository, seed int64, workers int) *Seeder {
	if workers <= 0 {
		workers = 1
	}
	return &Seeder{repo: repo, rnd: rand.New(rand.NewSource(seed)), workers: workers}
}

// Generate returns n conductores; the same seed yields the same records.
func (s *Seeder) Generate(n int) []domain.Conductor {
	out := make([]domain.Conductor, n)
	for i := range out {
		out[i] = s.conductor(i)
	}
	return out
}

func (s *Seeder) conductor(i int) domain.Conductor {
	nombre := pick(s.rnd, nombres)
	apellido := pick(s.rnd, apellidos)
	salario := float64(1_300_000 + s.rnd.Intn(40)*50_000)
	ingreso := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, s.rnd.Intn(3650))

	c := domain.Conductor{
		Nombre:               nombre,
		Apellido:             apellido,
		TipoIdentificacion:   pick(s.rnd, tiposID),
		NumeroIdentificacion: fmt.Sprintf("%d", 1_000_000_000+s.rnd.Intn(99_999_999)),
		Email:                fmt.Sprintf("conductor%04d@empresa.co", i+1),
		Telefono:             fmt.Sprintf("3%09d", s.rnd.Intn(1_000_000_000)),
		FechaNacimiento:      time.Date(1965+s.rnd.Intn(35), time.Month(1+s.rnd.Intn(12)), 1+s.rnd.Intn(28), 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
		Genero:               pick(s.rnd, generos),
		TipoSangre:           pick(s.rnd, sangre),
		Cargo:                pick(s.rnd, cargos),
		FechaIngreso:         ingreso.Format("2006-01-02"),
		SalarioBase:          &salario,
		TipoContrato:         pick(s.rnd, contratos),
		SedeTrabajo:          pick(s.rnd, sedes),
		Estado:               domain.Estados[s.rnd.Intn(len(domain.Estados))],
		EPS:                  pick(s.rnd, eps),
		FondoPension:         pick(s.rnd, pensiones),
		ARL:                  "Positiva",
	}
	if c.TipoContrato == "FIJO" {
		c.TerminoContrato = pick(s.rnd, terminos)
	}
	if c.Cargo == "CONDUCTOR" {
		c.NumeroLicencia = fmt.Sprintf("LIC-%06d", s.rnd.Intn(1_000_000))
		c.CategoriaLicencia = pick(s.rnd, licencias)
		c.VigenciaLicencia = time.Now().AddDate(1+s.rnd.Intn(5), 0, 0).Format("2006-01-02")
	}
	return c
}

// Seed posts the records with a bounded number of concurrent requests and
// stops at the first failure. It returns how many were created.
func (s *Seeder) Seed(ctx context.Context, records []domain.Conductor) (int, error) {
	start := time.Now()
	var created atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range records {
		c := records[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.repo.Create(gctx, domain.Submission{Conductor: c}); err != nil {
				return fmt.Errorf("create %s: %w", c.NombreCompleto(), err)
			}
			if n := created.Add(1); n%50 == 0 {
				logger.InfoLog(ctx, "seeded %d/%d conductores", n, len(records))
			}
			return nil
		})
	}
	err := g.Wait()

	logger.InfoLog(ctx, "seeded %d conductores in %s", created.Load(), time.Since(start).Round(time.Millisecond))
	return int(created.Load()), err
}

func pick(r *rand.Rand, items []string) string {
	return items[r.Intn(len(items))]
}
