package service

import (
	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/metrics"
	"github.com/locvowork/conductores_admin/internal/store"
	"github.com/locvowork/conductores_admin/internal/upload"
)

// StagingService manages the documents a view stages before submitting a form.
type StagingService struct {
	metrics *metrics.Metrics
}

func NewStagingService(m *metrics.Metrics) *StagingService {
	return &StagingService{metrics: m}
}

// Stage validates and stores a file for the category, cropping profile photos.
func (s *StagingService) Stage(view *store.RecordStore, categoria, filename string, data []byte, fechaVigencia string, crop *upload.CropRegion) (*upload.StagedDocument, error) {
	cat, err := parseCategoria(categoria)
	if err != nil {
		return nil, err
	}
	doc, err := view.Staging().Stage(cat, filename, data, fechaVigencia, crop)
	s.metrics.IncStagedUpload(string(cat), err == nil)
	return doc, err
}

// Remove drops the staged file and its validity date.
func (s *StagingService) Remove(view *store.RecordStore, categoria string) error {
	cat, err := parseCategoria(categoria)
	if err != nil {
		return err
	}
	if !view.Staging().Remove(cat) {
		return domain.NewNotFoundError("No hay un documento preparado para " + string(cat))
	}
	return nil
}

// List returns what the view has staged.
func (s *StagingService) List(view *store.RecordStore) []upload.StagedDocument {
	return view.Staging().List()
}

// Check runs the size and type rules without storing anything.
func (s *StagingService) Check(categoria, filename string, size int64) (*upload.Rejection, error) {
	cat, err := parseCategoria(categoria)
	if err != nil {
		return nil, err
	}
	return upload.Validate(filename, size, upload.KindFor(cat)), nil
}

// Crop returns the square JPEG for the region.
func (s *StagingService) Crop(filename string, data []byte, region *upload.CropRegion) (*upload.CroppedFile, error) {
	if !upload.IsImage(data) {
		msg := "El archivo no es una imagen"
		return nil, domain.NewValidationError(msg, domain.FieldError{Field: "archivo", Message: msg})
	}
	out, err := upload.CropSquare(data, filename, region)
	if err != nil {
		return nil, domain.NewValidationError("No se pudo recortar la imagen", domain.FieldError{Field: "region", Message: err.Error()})
	}
	return out, nil
}

func parseCategoria(s string) (domain.CategoriaDocumento, error) {
	cat, ok := domain.ParseCategoria(s)
	if !ok {
		return "", domain.NewValidationError("Categoría de documento desconocida: "+s,
			domain.FieldError{Field: "categoria", Message: "categoría no válida"})
	}
	return cat, nil
}
