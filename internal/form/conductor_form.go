package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/locvowork/conductores_admin/internal/domain"
)

// Values that switch on conditional sections.
const (
	CargoConductor = "CONDUCTOR"
	ContratoFijo   = "FIJO"
)

// ConductorForm is the editable projection of a conductor.
// The license section is only required for drivers; fixed-term contracts need a term.
type ConductorForm struct {
	Nombre               string `json:"nombre" validate:"required,max=100"`
	Apellido             string `json:"apellido" validate:"required,max=100"`
	TipoIdentificacion   string `json:"tipo_identificacion" validate:"required,oneof=CC CE TI PA NIT"`
	NumeroIdentificacion string `json:"numero_identificacion" validate:"required,alphanum,min=5,max=20"`

	Email           string `json:"email" validate:"omitempty,email"`
	Telefono        string `json:"telefono" validate:"omitempty,min=7,max=20"`
	Direccion       string `json:"direccion"`
	FechaNacimiento string `json:"fecha_nacimiento" validate:"omitempty,datetime=2006-01-02"`
	Genero          string `json:"genero" validate:"omitempty,oneof=M F O"`
	TipoSangre      string `json:"tipo_sangre" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`

	Cargo           string   `json:"cargo" validate:"required"`
	FechaIngreso    string   `json:"fecha_ingreso" validate:"required,datetime=2006-01-02"`
	SalarioBase     *float64 `json:"salario_base" validate:"omitempty,gte=0"`
	TipoContrato    string   `json:"tipo_contrato" validate:"required"`
	TerminoContrato string   `json:"termino_contrato" validate:"required_if=TipoContrato FIJO"`
	SedeTrabajo     string   `json:"sede_trabajo" validate:"required"`

	Estado domain.Estado `json:"estado" validate:"omitempty,oneof=servicio disponible descanso vacaciones incapacidad desvinculado"`

	EPS          string `json:"eps"`
	FondoPension string `json:"fondo_pension"`
	ARL          string `json:"arl"`

	NumeroLicencia    string `json:"numero_licencia_conduccion" validate:"required_if=Cargo CONDUCTOR"`
	CategoriaLicencia string `json:"categoria_licencia" validate:"required_if=Cargo CONDUCTOR"`
	VigenciaLicencia  string `json:"vigencia_licencia" validate:"required_if=Cargo CONDUCTOR"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims text fields and upper-cases enumerations.
func (f *ConductorForm) Normalize() {
	f.Nombre = strings.TrimSpace(f.Nombre)
	f.Apellido = strings.TrimSpace(f.Apellido)
	f.NumeroIdentificacion = strings.TrimSpace(f.NumeroIdentificacion)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Telefono = strings.TrimSpace(f.Telefono)
	f.TipoIdentificacion = strings.ToUpper(strings.TrimSpace(f.TipoIdentificacion))
	f.Cargo = strings.ToUpper(strings.TrimSpace(f.Cargo))
	f.TipoContrato = strings.ToUpper(strings.TrimSpace(f.TipoContrato))
	f.CategoriaLicencia = strings.ToUpper(strings.TrimSpace(f.CategoriaLicencia))
	f.Estado = domain.Estado(strings.ToLower(strings.TrimSpace(string(f.Estado))))
	if f.TipoContrato != ContratoFijo {
		f.TerminoContrato = ""
	}
	if f.Cargo != CargoConductor {
		f.NumeroLicencia = ""
		f.CategoriaLicencia = ""
		f.VigenciaLicencia = ""
	}
}

// Validate returns a validation APIError listing every failing field.
func (f *ConductorForm) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate conductor form: %w", err)
	}
	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return domain.NewValidationError("Hay campos obligatorios sin diligenciar o con formato inválido", fields...)
}

// Prepare normalizes then validates.
func (f *ConductorForm) Prepare() error {
	f.Normalize()
	return f.Validate()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("El campo %s es obligatorio", fe.Field())
	case "email":
		return "El correo electrónico no es válido"
	case "datetime":
		return fmt.Sprintf("El campo %s debe tener formato AAAA-MM-DD", fe.Field())
	case "oneof":
		return fmt.Sprintf("El valor de %s no es válido (opciones: %s)", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("El campo %s no puede ser negativo", fe.Field())
	case "min", "max":
		return fmt.Sprintf("El campo %s tiene una longitud inválida", fe.Field())
	case "alphanum":
		return fmt.Sprintf("El campo %s solo admite letras y números", fe.Field())
	default:
		return fmt.Sprintf("El campo %s no es válido", fe.Field())
	}
}

// ToConductor copies the form onto a conductor, keeping id, documents and audit fields.
func (f *ConductorForm) ToConductor(base domain.Conductor) domain.Conductor {
	c := base
	c.Nombre = f.Nombre
	c.Apellido = f.Apellido
	c.TipoIdentificacion = f.TipoIdentificacion
	c.NumeroIdentificacion = f.NumeroIdentificacion
	c.Email = f.Email
	c.Telefono = f.Telefono
	c.Direccion = f.Direccion
	c.FechaNacimiento = f.FechaNacimiento
	c.Genero = f.Genero
	c.TipoSangre = f.TipoSangre
	c.Cargo = f.Cargo
	c.FechaIngreso = f.FechaIngreso
	c.SalarioBase = f.SalarioBase
	c.TipoContrato = f.TipoContrato
	c.TerminoContrato = f.TerminoContrato
	c.SedeTrabajo = f.SedeTrabajo
	c.Estado = f.Estado
	if c.Estado == "" {
		c.Estado = domain.EstadoDisponible
	}
	c.EPS = f.EPS
	c.FondoPension = f.FondoPension
	c.ARL = f.ARL
	c.NumeroLicencia = f.NumeroLicencia
	c.CategoriaLicencia = f.CategoriaLicencia
	c.VigenciaLicencia = f.VigenciaLicencia
	return c
}

// MissingDocuments lists required categories that are neither staged nor already stored.
func MissingDocuments(has func(domain.CategoriaDocumento) bool) []domain.FieldError {
	var missing []domain.FieldError
	for _, cat := range domain.CategoriasRequeridas {
		if !has(cat) {
			missing = append(missing, domain.FieldError{
				Field:   "documento_" + string(cat),
				Message: fmt.Sprintf("El documento %s es obligatorio", cat),
			})
		}
	}
	return missing
}
