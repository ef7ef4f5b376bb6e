package domain

import "strings"

// ==================== CONDUCTOR ====================

// Estado is the operational status of a conductor.
type Estado string

const (
	EstadoServicio     Estado = "servicio"
	EstadoDisponible   Estado = "disponible"
	EstadoDescanso     Estado = "descanso"
	EstadoVacaciones   Estado = "vacaciones"
	EstadoIncapacidad  Estado = "incapacidad"
	EstadoDesvinculado Estado = "desvinculado"
)

// Estados lists every known status in display order.
var Estados = []Estado{
	EstadoServicio,
	EstadoDisponible,
	EstadoDescanso,
	EstadoVacaciones,
	EstadoIncapacidad,
	EstadoDesvinculado,
}

// Conductor mirrors the driver record served by the upstream API.
// Dates are kept as the strings the API sends (YYYY-MM-DD or ISO-8601).
type Conductor struct {
	ID                   int64  `json:"id,omitempty"`
	Nombre               string `json:"nombre"`
	Apellido             string `json:"apellido"`
	TipoIdentificacion   string `json:"tipo_identificacion"`
	NumeroIdentificacion string `json:"numero_identificacion"`

	Email           string `json:"email,omitempty"`
	Telefono        string `json:"telefono,omitempty"`
	Direccion       string `json:"direccion,omitempty"`
	FechaNacimiento string `json:"fecha_nacimiento,omitempty"`
	Genero          string `json:"genero,omitempty"`
	TipoSangre      string `json:"tipo_sangre,omitempty"`

	Cargo           string   `json:"cargo,omitempty"`
	FechaIngreso    string   `json:"fecha_ingreso,omitempty"`
	SalarioBase     *float64 `json:"salario_base,omitempty"`
	TipoContrato    string   `json:"tipo_contrato,omitempty"`
	TerminoContrato string   `json:"termino_contrato,omitempty"`
	SedeTrabajo     string   `json:"sede_trabajo,omitempty"`

	Estado Estado `json:"estado,omitempty"`

	EPS          string `json:"eps,omitempty"`
	FondoPension string `json:"fondo_pension,omitempty"`
	ARL          string `json:"arl,omitempty"`

	NumeroLicencia    string `json:"numero_licencia_conduccion,omitempty"`
	CategoriaLicencia string `json:"categoria_licencia,omitempty"`
	VigenciaLicencia  string `json:"vigencia_licencia,omitempty"`

	Documentos []Documento `json:"documentos,omitempty"`

	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
	CreadoPorID      *int64 `json:"creado_por_id,omitempty"`
	ActualizadoPorID *int64 `json:"actualizado_por_id,omitempty"`
}

// NombreCompleto returns "Nombre Apellido".
func (c Conductor) NombreCompleto() string {
	return strings.TrimSpace(c.Nombre + " " + c.Apellido)
}

// Documento returns the document stored under the given category, if any.
func (c Conductor) Documento(cat CategoriaDocumento) (Documento, bool) {
	for _, d := range c.Documentos {
		if d.Categoria == cat {
			return d, true
		}
	}
	return Documento{}, false
}

// ==================== DOCUMENTOS ====================

// CategoriaDocumento is the slot a document fills on a conductor profile.
type CategoriaDocumento string

const (
	CategoriaCedula            CategoriaDocumento = "CEDULA"
	CategoriaLicencia          CategoriaDocumento = "LICENCIA"
	CategoriaContrato          CategoriaDocumento = "CONTRATO"
	CategoriaFotoPerfil        CategoriaDocumento = "FOTO_PERFIL"
	CategoriaCertificadoMedico CategoriaDocumento = "CERTIFICADO_MEDICO"
	CategoriaHojaDeVida        CategoriaDocumento = "HOJA_DE_VIDA"
)

// CategoriasRequeridas must be present on every conductor.
var CategoriasRequeridas = []CategoriaDocumento{
	CategoriaCedula,
	CategoriaLicencia,
	CategoriaContrato,
}

// CategoriasOpcionales may be attached but are not enforced.
var CategoriasOpcionales = []CategoriaDocumento{
	CategoriaFotoPerfil,
	CategoriaCertificadoMedico,
	CategoriaHojaDeVida,
}

// ParseCategoria normalizes a category name and reports whether it is known.
func ParseCategoria(s string) (CategoriaDocumento, bool) {
	c := CategoriaDocumento(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range append(append([]CategoriaDocumento{}, CategoriasRequeridas...), CategoriasOpcionales...) {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Documento is a file attached to a conductor and kept in remote storage.
type Documento struct {
	ID            int64              `json:"id,omitempty"`
	Categoria     CategoriaDocumento `json:"categoria"`
	S3Key         string             `json:"s3_key"`
	Filename      string             `json:"filename"`
	Mimetype      string             `json:"mimetype,omitempty"`
	Size          int64              `json:"size"`
	UploadDate    string             `json:"upload_date,omitempty"`
	FechaVigencia string             `json:"fecha_vigencia,omitempty"`
	// SignedURL is filled by the gateway for detail views; never sent upstream.
	SignedURL string `json:"signed_url,omitempty"`
}

// ==================== LISTADO ====================

// Facet names accepted by the listing endpoint.
const (
	FacetSedeTrabajo        = "sede_trabajo"
	FacetTipoIdentificacion = "tipo_identificacion"
	FacetTipoContrato       = "tipo_contrato"
	FacetEstado             = "estado"
	FacetGenero             = "genero"
	FacetTipoSangre         = "tipo_sangre"
	FacetTerminoContrato    = "termino_contrato"
)

// Facets lists every facet in the order they are serialized.
var Facets = []string{
	FacetSedeTrabajo,
	FacetTipoIdentificacion,
	FacetTipoContrato,
	FacetEstado,
	FacetGenero,
	FacetTipoSangre,
	FacetTerminoContrato,
}

// DateRange bounds fecha_ingreso. Empty bounds are open.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// SalaryRange bounds salario_base. Nil bounds are open.
type SalaryRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// FilterSelection is the full set of user-selected constraints on the listing.
// An empty facet set or empty search means "no constraint".
type FilterSelection struct {
	Search  string              `json:"search,omitempty"`
	Facets  map[string][]string `json:"facets,omitempty"`
	Fechas  DateRange           `json:"fechas"`
	Salario SalaryRange         `json:"salario"`
}

// SortDirection is the backend's order enum.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// ParseSortDirection is case-insensitive; unknown values fall back to ASC.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// SortDescriptor governs list ordering.
type SortDescriptor struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// ListParams is what a list fetch needs.
type ListParams struct {
	Page      int
	Limit     int
	Selection FilterSelection
	Sort      SortDescriptor
}

// ListResult is the upstream listing response.
type ListResult struct {
	Success     bool        `json:"success"`
	Data        []Conductor `json:"data"`
	Count       int         `json:"count"`
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
	Message     string      `json:"message,omitempty"`
}
