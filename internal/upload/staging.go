package upload

import (
	"sort"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/locvowork/conductores_admin/internal/domain"
)

const validityLayout = "2006-01-02"

// StagedDocument is a validated file waiting for the form to be submitted.
type StagedDocument struct {
	Categoria     domain.CategoriaDocumento `json:"categoria"`
	Filename      string                    `json:"filename"`
	ContentType   string                    `json:"content_type"`
	Size          int64                     `json:"size"`
	FechaVigencia string                    `json:"fecha_vigencia,omitempty"`
	Cropped       bool                      `json:"cropped"`

	data []byte
}

// Staging holds at most one document per category for a single form.
type Staging struct {
	mu   sync.Mutex
	docs map[domain.CategoriaDocumento]*StagedDocument
}

func NewStaging() *Staging {
	return &Staging{docs: make(map[domain.CategoriaDocumento]*StagedDocument)}
}

// Stage validates the file, crops profile photos and replaces whatever was
// staged for the category. Refusals come back as validation errors.
func (s *Staging) Stage(cat domain.CategoriaDocumento, filename string, data []byte, fechaVigencia string, crop *CropRegion) (*StagedDocument, error) {
	field := "documento_" + string(cat)
	if rej := Validate(filename, int64(len(data)), KindFor(cat)); rej != nil {
		return nil, domain.NewValidationError(rej.Message, domain.FieldError{Field: field, Message: rej.Message})
	}
	if fechaVigencia != "" {
		if _, err := time.Parse(validityLayout, fechaVigencia); err != nil {
			msg := "La fecha de vigencia debe tener formato AAAA-MM-DD"
			return nil, domain.NewValidationError(msg, domain.FieldError{Field: "fecha_vigencia_" + string(cat), Message: msg})
		}
	}

	doc := &StagedDocument{
		Categoria:     cat,
		Filename:      filename,
		ContentType:   mimetype.Detect(data).String(),
		Size:          int64(len(data)),
		FechaVigencia: fechaVigencia,
		data:          data,
	}

	if NeedsCrop(cat, data) {
		cropped, err := CropSquare(data, filename, crop)
		if err != nil {
			msg := "No se pudo recortar la foto de perfil"
			return nil, domain.NewValidationError(msg, domain.FieldError{Field: field, Message: err.Error()})
		}
		doc.Filename = cropped.Filename
		doc.ContentType = cropped.ContentType
		doc.Size = int64(len(cropped.Data))
		doc.Cropped = true
		doc.data = cropped.Data
	}

	s.mu.Lock()
	s.docs[cat] = doc
	s.mu.Unlock()

	out := *doc
	return &out, nil
}

// Remove drops the staged file together with its validity date.
func (s *Staging) Remove(cat domain.CategoriaDocumento) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[cat]
	delete(s.docs, cat)
	return ok
}

// Has reports whether a file is staged for the category.
func (s *Staging) Has(cat domain.CategoriaDocumento) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[cat]
	return ok
}

// List returns the staged documents ordered by category.
func (s *Staging) List() []StagedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StagedDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Categoria < out[j].Categoria })
	return out
}

// Files converts the staged documents into upstream upload parts.
func (s *Staging) Files() []domain.UploadFile {
	docs := s.List()
	files := make([]domain.UploadFile, len(docs))
	for i, d := range docs {
		files[i] = domain.UploadFile{
			Categoria:     d.Categoria,
			Filename:      d.Filename,
			ContentType:   d.ContentType,
			Data:          d.data,
			FechaVigencia: d.FechaVigencia,
		}
	}
	return files
}

// Clear empties the staging area after a successful submission.
func (s *Staging) Clear() {
	s.mu.Lock()
	s.docs = make(map[domain.CategoriaDocumento]*StagedDocument)
	s.mu.Unlock()
}
