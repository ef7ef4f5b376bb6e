package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/form"
	"github.com/locvowork/conductores_admin/internal/logger"
	"github.com/locvowork/conductores_admin/internal/sorting"
	"github.com/locvowork/conductores_admin/internal/stats"
	"github.com/locvowork/conductores_admin/internal/store"
)

const (
	DefaultPageSize         = 12
	DefaultSignedURLWorkers = 4
)

// Options tunes the service.
type Options struct {
	PageSize         int
	SignedURLWorkers int
}

// ListPage is one loaded page plus the statistics derived from it.
type ListPage struct {
	VistaID      string             `json:"vista_id"`
	Data         []domain.Conductor `json:"data"`
	Count        int                `json:"count"`
	CurrentPage  int                `json:"currentPage"`
	TotalPages   int                `json:"totalPages"`
	Layout       store.Layout       `json:"layout"`
	Estadisticas stats.Summary      `json:"estadisticas"`
}

// ConductorService handles business logic for conductores
type ConductorService struct {
	conductores domain.ConductorRepository
	documentos  domain.DocumentRepository
	opts        Options
}

// NewConductorService creates a new ConductorService instance
func NewConductorService(conductores domain.ConductorRepository, documentos domain.DocumentRepository, opts Options) *ConductorService {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SignedURLWorkers <= 0 {
		opts.SignedURLWorkers = DefaultSignedURLWorkers
	}
	return &ConductorService{
		conductores: conductores,
		documentos:  documentos,
		opts:        opts,
	}
}

// ==================== Listing ====================

// List fetches one page with the given selection and replaces the view's records with it.
func (s *ConductorService) List(ctx context.Context, view *store.RecordStore, params domain.ListParams) (*ListPage, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = s.opts.PageSize
	}
	if params.Sort.Field != "" {
		params.Sort.Direction = domain.ParseSortDirection(string(params.Sort.Direction))
	}

	result, err := s.conductores.List(ctx, params)
	if err != nil {
		return nil, err
	}
	view.Replace(result, params)
	return pageFrom(view.Snapshot()), nil
}

// Stats recomputes the statistics of the view's loaded records.
func (s *ConductorService) Stats(view *store.RecordStore) stats.Summary {
	return stats.Compute(view.Snapshot().Records)
}

// Sort reorders the loaded records locally without contacting the API.
func (s *ConductorService) Sort(view *store.RecordStore, sd domain.SortDescriptor) ([]domain.Conductor, error) {
	sd.Direction = domain.ParseSortDirection(string(sd.Direction))
	if sd.Field == "" {
		return nil, domain.NewValidationError("El campo de ordenamiento es obligatorio",
			domain.FieldError{Field: "field", Message: "obligatorio"})
	}
	return sorting.SortConductores(view.Snapshot().Records, sd)
}

// SetLayout stores the view's grid/list preference.
func (s *ConductorService) SetLayout(view *store.RecordStore, layout string) error {
	l, ok := store.ParseLayout(layout)
	if !ok {
		return domain.NewValidationError("Vista no válida", domain.FieldError{Field: "vista", Message: "use grid o list"})
	}
	view.SetLayout(l)
	return nil
}

func pageFrom(snap store.Snapshot) *ListPage {
	return &ListPage{
		VistaID:      snap.ID,
		Data:         snap.Records,
		Count:        snap.Pagination.Count,
		CurrentPage:  snap.Pagination.CurrentPage,
		TotalPages:   snap.Pagination.TotalPages,
		Layout:       snap.Layout,
		Estadisticas: stats.Compute(snap.Records),
	}
}

// refresh re-fetches the view with its last selection. It is a separate
// request and its failure never fails the submission that triggered it.
func (s *ConductorService) refresh(ctx context.Context, view *store.RecordStore) {
	snap := view.Snapshot()
	params := domain.ListParams{
		Page:      snap.Pagination.CurrentPage,
		Limit:     snap.Pagination.Limit,
		Selection: snap.Selection,
		Sort:      snap.Sort,
	}
	if _, err := s.List(ctx, view, params); err != nil {
		logger.WarnLog(ctx, "refresh of view %s after save failed: %v", view.ID(), err)
	}
}

// ==================== Detail ====================

// Get returns the conductor with a signed URL on every document that could be signed.
func (s *ConductorService) Get(ctx context.Context, id int64) (*domain.Conductor, error) {
	c, err := s.conductores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SignedURLWorkers)
	for i := range c.Documentos {
		doc := &c.Documentos[i]
		if doc.S3Key == "" {
			continue
		}
		g.Go(func() error {
			u, err := s.documentos.SignedURL(gctx, doc.S3Key)
			if err != nil {
				logger.WarnLog(gctx, "could not sign %s for conductor %d: %v", doc.Categoria, id, err)
				return nil
			}
			doc.SignedURL = u
			return nil
		})
	}
	_ = g.Wait()
	return c, nil
}

// ==================== Create / Update ====================

// Create validates the form and staged documents, submits them and refreshes the view.
func (s *ConductorService) Create(ctx context.Context, view *store.RecordStore, f form.ConductorForm) (*domain.Conductor, error) {
	staging := view.Staging()
	if err := prepare(&f, staging.Has); err != nil {
		return nil, err
	}

	created, err := s.conductores.Create(ctx, domain.Submission{
		Conductor: f.ToConductor(domain.Conductor{}),
		Files:     staging.Files(),
	})
	if err != nil {
		return nil, err
	}
	logger.InfoLog(ctx, "conductor %d created", created.ID)

	staging.Clear()
	s.refresh(ctx, view)
	return created, nil
}

// Update replaces the conductor. Documents not re-staged are kept by storage key.
func (s *ConductorService) Update(ctx context.Context, view *store.RecordStore, id int64, f form.ConductorForm) (*domain.Conductor, error) {
	current, err := s.conductores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	staging := view.Staging()
	if err := prepare(&f, hasDocument(current, staging.Has)); err != nil {
		return nil, err
	}

	updated, err := s.conductores.Update(ctx, id, domain.Submission{
		Conductor: f.ToConductor(*current),
		Files:     staging.Files(),
		Existing:  existingDocuments(current, staging.Has),
	})
	if err != nil {
		return nil, err
	}
	logger.InfoLog(ctx, "conductor %d updated", id)

	staging.Clear()
	s.refresh(ctx, view)
	return updated, nil
}

// CreateWithAI submits the staged documents for AI extraction. Progress arrives
// on the notification socket identified by socketID.
func (s *ConductorService) CreateWithAI(ctx context.Context, view *store.RecordStore, f form.ConductorForm, socketID string) (*domain.ProcessingAck, error) {
	staging := view.Staging()
	if err := aiPreconditions(socketID, staging.Has); err != nil {
		return nil, err
	}
	f.Normalize()

	ack, err := s.conductores.CreateWithAI(ctx, domain.Submission{
		Conductor: f.ToConductor(domain.Conductor{}),
		Files:     staging.Files(),
		SocketID:  socketID,
	})
	if err != nil {
		return nil, err
	}
	staging.Clear()
	return ack, nil
}

// UpdateWithAI is CreateWithAI for an existing conductor.
func (s *ConductorService) UpdateWithAI(ctx context.Context, view *store.RecordStore, id int64, f form.ConductorForm, socketID string) (*domain.ProcessingAck, error) {
	current, err := s.conductores.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	staging := view.Staging()
	if err := aiPreconditions(socketID, staging.Has); err != nil {
		return nil, err
	}
	f.Normalize()

	ack, err := s.conductores.UpdateWithAI(ctx, id, domain.Submission{
		Conductor: f.ToConductor(*current),
		Files:     staging.Files(),
		Existing:  existingDocuments(current, staging.Has),
		SocketID:  socketID,
	})
	if err != nil {
		return nil, err
	}
	staging.Clear()
	return ack, nil
}

func prepare(f *form.ConductorForm, has func(domain.CategoriaDocumento) bool) error {
	err := f.Prepare()
	missing := form.MissingDocuments(has)
	if err == nil && len(missing) == 0 {
		return nil
	}

	var fields []domain.FieldError
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, apiErr.Fields...)
	} else if err != nil {
		return err
	}
	fields = append(fields, missing...)
	return domain.NewValidationError("Hay campos obligatorios sin diligenciar o con formato inválido", fields...)
}

func aiPreconditions(socketID string, staged func(domain.CategoriaDocumento) bool) error {
	var fields []domain.FieldError
	if socketID == "" {
		fields = append(fields, domain.FieldError{Field: "socket-id", Message: "Se requiere una conexión de notificaciones activa"})
	}
	found := false
	for _, cat := range append(append([]domain.CategoriaDocumento{}, domain.CategoriasRequeridas...), domain.CategoriasOpcionales...) {
		if staged(cat) {
			found = true
			break
		}
	}
	if !found {
		fields = append(fields, domain.FieldError{Field: "documentos", Message: "Adjunte al menos un documento para procesar"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError("No se puede iniciar el procesamiento con IA", fields...)
	}
	return nil
}

func hasDocument(c *domain.Conductor, staged func(domain.CategoriaDocumento) bool) func(domain.CategoriaDocumento) bool {
	return func(cat domain.CategoriaDocumento) bool {
		if staged(cat) {
			return true
		}
		_, ok := c.Documento(cat)
		return ok
	}
}

func existingDocuments(c *domain.Conductor, staged func(domain.CategoriaDocumento) bool) map[domain.CategoriaDocumento]string {
	out := make(map[domain.CategoriaDocumento]string)
	for _, d := range c.Documentos {
		if d.S3Key != "" && !staged(d.Categoria) {
			out[d.Categoria] = d.S3Key
		}
	}
	return out
}

// ==================== Documents ====================

// SignedURL returns a time-limited link for a stored document.
func (s *ConductorService) SignedURL(ctx context.Context, key string) (string, error) {
	return s.documentos.SignedURL(ctx, key)
}

// Download streams a stored document. The caller closes the body.
func (s *ConductorService) Download(ctx context.Context, id int64) (*domain.Download, error) {
	if id <= 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("Identificador de documento no válido: %d", id))
	}
	return s.documentos.Download(ctx, id)
}
