// Package upload validates, crops and stages conductor documents before they
// are forwarded to the upstream API.
package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/locvowork/conductores_admin/internal/domain"
)

// MaxFileSize is the inclusive upload ceiling (10 MB).
const MaxFileSize int64 = 10 * 1024 * 1024

// Kind groups categories that share an extension allow-list.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

var allowedExtensions = map[Kind][]string{
	KindImage:    {".jpg", ".jpeg", ".png", ".webp"},
	KindDocument: {".pdf", ".jpg", ".jpeg", ".png"},
}

// KindFor returns the allow-list a category is validated against.
func KindFor(cat domain.CategoriaDocumento) Kind {
	if cat == domain.CategoriaFotoPerfil {
		return KindImage
	}
	return KindDocument
}

// RejectReason says why a file was refused.
type RejectReason string

const (
	ReasonTooLarge   RejectReason = "size_exceeded"
	ReasonNotAllowed RejectReason = "type_not_allowed"
	ReasonEmpty      RejectReason = "empty_file"
)

// Rejection is a user-facing refusal, not a failure of the gateway.
type Rejection struct {
	Reason  RejectReason
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Validate checks size and extension. It returns nil when the file is accepted.
func Validate(filename string, size int64, kind Kind) *Rejection {
	if size > MaxFileSize {
		return &Rejection{
			Reason:  ReasonTooLarge,
			Message: "El archivo excede el tamaño máximo de 10MB",
		}
	}
	if size <= 0 {
		return &Rejection{
			Reason:  ReasonEmpty,
			Message: "El archivo está vacío",
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	allowed := allowedExtensions[kind]
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return &Rejection{
		Reason:  ReasonNotAllowed,
		Message: fmt.Sprintf("Tipo de archivo no permitido. Formatos aceptados: %s", strings.Join(allowed, ", ")),
	}
}
