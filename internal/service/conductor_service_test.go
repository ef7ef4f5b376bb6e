package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/form"
	"github.com/locvowork/conductores_admin/internal/store"
)

type fakeConductores struct {
	mu          sync.Mutex
	listCalls   []domain.ListParams
	listResult  *domain.ListResult
	listErr     error
	byID        map[int64]domain.Conductor
	submissions []domain.Submission
	saveErr     error
}

func (f *fakeConductores) List(_ context.Context, p domain.ListParams) (*domain.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, p)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResult, nil
}

func (f *fakeConductores) GetByID(_ context.Context, id int64) (*domain.Conductor, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, &domain.APIError{Kind: domain.KindNotFound, Status: 404, Message: "Conductor no encontrado"}
	}
	c.Documentos = append([]domain.Documento(nil), c.Documentos...)
	return &c, nil
}

func (f *fakeConductores) record(sub domain.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, sub)
	return f.saveErr
}

func (f *fakeConductores) Create(_ context.Context, sub domain.Submission) (*domain.Conductor, error) {
	if err := f.record(sub); err != nil {
		return nil, err
	}
	c := sub.Conductor
	c.ID = 100
	return &c, nil
}

func (f *fakeConductores) Update(_ context.Context, id int64, sub domain.Submission) (*domain.Conductor, error) {
	if err := f.record(sub); err != nil {
		return nil, err
	}
	c := sub.Conductor
	c.ID = id
	return &c, nil
}

func (f *fakeConductores) CreateWithAI(_ context.Context, sub domain.Submission) (*domain.ProcessingAck, error) {
	if err := f.record(sub); err != nil {
		return nil, err
	}
	return &domain.ProcessingAck{Success: true, JobID: "job-1"}, nil
}

func (f *fakeConductores) UpdateWithAI(_ context.Context, _ int64, sub domain.Submission) (*domain.ProcessingAck, error) {
	if err := f.record(sub); err != nil {
		return nil, err
	}
	return &domain.ProcessingAck{Success: true, JobID: "job-2"}, nil
}

type fakeDocumentos struct {
	mu     sync.Mutex
	signed []string
	failOn string
}

func (f *fakeDocumentos) SignedURL(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signed = append(f.signed, key)
	if key == f.failOn {
		return "", domain.NewNetworkError("sin conexión", errors.New("dial tcp"))
	}
	return "https://s3.local/" + key + "?sig=1", nil
}

func (f *fakeDocumentos) Download(_ context.Context, id int64) (*domain.Download, error) {
	return &domain.Download{Body: io.NopCloser(bytes.NewReader([]byte("%PDF"))), ContentType: "application/pdf", Filename: "doc.pdf"}, nil
}

var pdf = []byte("%PDF-1.4\n%%EOF\n")

func listOf(estados ...domain.Estado) *domain.ListResult {
	data := make([]domain.Conductor, len(estados))
	for i, e := range estados {
		data[i] = domain.Conductor{ID: int64(i + 1), Nombre: "C", Apellido: string(rune('A' + i)), Estado: e}
	}
	return &domain.ListResult{Success: true, Data: data, Count: len(data), CurrentPage: 1, TotalPages: 1}
}

func validForm() form.ConductorForm {
	return form.ConductorForm{
		Nombre:               "Luis",
		Apellido:             "Pérez",
		TipoIdentificacion:   "CC",
		NumeroIdentificacion: "80123456",
		Cargo:                "CONDUCTOR",
		FechaIngreso:         "2023-02-01",
		TipoContrato:         "INDEFINIDO",
		SedeTrabajo:          "Medellín",
		NumeroLicencia:       "L-1",
		CategoriaLicencia:    "C2",
		VigenciaLicencia:     "2028-01-01",
	}
}

func newFixture() (*ConductorService, *fakeConductores, *fakeDocumentos, *store.RecordStore) {
	repo := &fakeConductores{
		listResult: listOf(domain.EstadoServicio, domain.EstadoDisponible, domain.EstadoDescanso, domain.EstadoDesvinculado),
		byID:       map[int64]domain.Conductor{},
	}
	docs := &fakeDocumentos{}
	svc := NewConductorService(repo, docs, Options{PageSize: 10})
	view := store.NewRegistry(time.Minute, nil).Acquire("")
	return svc, repo, docs, view
}

func TestConductorServiceList(t *testing.T) {
	svc, repo, _, view := newFixture()

	page, err := svc.List(context.Background(), view, domain.ListParams{
		Selection: domain.FilterSelection{Facets: map[string][]string{domain.FacetEstado: {"disponible"}}, Search: "Pérez"},
		Sort:      domain.SortDescriptor{Field: "apellido", Direction: "desc"},
	})
	require.NoError(t, err)

	require.Len(t, repo.listCalls, 1)
	assert.Equal(t, 1, repo.listCalls[0].Page)
	assert.Equal(t, 10, repo.listCalls[0].Limit)
	assert.Equal(t, domain.SortDesc, repo.listCalls[0].Sort.Direction)

	assert.Equal(t, view.ID(), page.VistaID)
	assert.Len(t, page.Data, 4)
	assert.Equal(t, 4, page.Estadisticas.Total)
	assert.Equal(t, 2, page.Estadisticas.Activos)
	assert.Equal(t, store.LayoutGrid, page.Layout)
}

func TestConductorServiceListErrorKeepsView(t *testing.T) {
	svc, repo, _, view := newFixture()
	_, err := svc.List(context.Background(), view, domain.ListParams{})
	require.NoError(t, err)

	repo.listErr = domain.NewNetworkError("sin conexión", errors.New("refused"))
	_, err = svc.List(context.Background(), view, domain.ListParams{Page: 2})
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
	assert.Len(t, view.Snapshot().Records, 4)
}

func TestConductorServiceSortAndStats(t *testing.T) {
	svc, _, _, view := newFixture()
	_, err := svc.List(context.Background(), view, domain.ListParams{})
	require.NoError(t, err)

	sorted, err := svc.Sort(view, domain.SortDescriptor{Field: "apellido", Direction: "DESC"})
	require.NoError(t, err)
	assert.Equal(t, "D", sorted[0].Apellido)
	assert.Equal(t, "A", view.Snapshot().Records[0].Apellido)

	_, err = svc.Sort(view, domain.SortDescriptor{})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	s := svc.Stats(view)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Inactivos)

	require.NoError(t, svc.SetLayout(view, "list"))
	assert.Equal(t, store.LayoutList, view.Snapshot().Layout)
	assert.Error(t, svc.SetLayout(view, "tabla"))
}

func TestConductorServiceGetSignsDocuments(t *testing.T) {
	svc, repo, docs, _ := newFixture()
	repo.byID[7] = domain.Conductor{ID: 7, Documentos: []domain.Documento{
		{Categoria: domain.CategoriaCedula, S3Key: "c/7/cedula.pdf"},
		{Categoria: domain.CategoriaLicencia, S3Key: "c/7/licencia.pdf"},
		{Categoria: domain.CategoriaContrato, S3Key: ""},
	}}
	docs.failOn = "c/7/licencia.pdf"

	c, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/c/7/cedula.pdf?sig=1", c.Documentos[0].SignedURL)
	assert.Empty(t, c.Documentos[1].SignedURL)
	assert.Empty(t, c.Documentos[2].SignedURL)
	assert.Len(t, docs.signed, 2)

	_, err = svc.Get(context.Background(), 8)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func stageRequired(t *testing.T, view *store.RecordStore, cats ...domain.CategoriaDocumento) {
	t.Helper()
	for _, cat := range cats {
		_, err := view.Staging().Stage(cat, string(cat)+".pdf", pdf, "", nil)
		require.NoError(t, err)
	}
}

func TestConductorServiceCreate(t *testing.T) {
	t.Run("Missing documents and fields are reported together", func(t *testing.T) {
		svc, repo, _, view := newFixture()
		f := validForm()
		f.Nombre = ""
		stageRequired(t, view, domain.CategoriaCedula)

		_, err := svc.Create(context.Background(), view, f)
		var apiErr *domain.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, domain.KindValidation, apiErr.Kind)

		fields := map[string]bool{}
		for _, fe := range apiErr.Fields {
			fields[fe.Field] = true
		}
		assert.True(t, fields["nombre"])
		assert.True(t, fields["documento_LICENCIA"])
		assert.True(t, fields["documento_CONTRATO"])
		assert.Empty(t, repo.submissions)
	})

	t.Run("Submits staged files then refreshes the view", func(t *testing.T) {
		svc, repo, _, view := newFixture()
		_, err := svc.List(context.Background(), view, domain.ListParams{Page: 1, Selection: domain.FilterSelection{Search: "Pérez"}})
		require.NoError(t, err)
		stageRequired(t, view, domain.CategoriaCedula, domain.CategoriaLicencia, domain.CategoriaContrato)

		created, err := svc.Create(context.Background(), view, validForm())
		require.NoError(t, err)
		assert.Equal(t, int64(100), created.ID)
		assert.Equal(t, domain.EstadoDisponible, created.Estado)

		require.Len(t, repo.submissions, 1)
		assert.Len(t, repo.submissions[0].Files, 3)
		assert.Empty(t, view.Staging().List())

		require.Len(t, repo.listCalls, 2)
		assert.Equal(t, "Pérez", repo.listCalls[1].Selection.Search)
	})

	t.Run("Refresh failure does not fail the save", func(t *testing.T) {
		svc, repo, _, view := newFixture()
		stageRequired(t, view, domain.CategoriaCedula, domain.CategoriaLicencia, domain.CategoriaContrato)
		repo.listErr = domain.NewNetworkError("caído", errors.New("refused"))

		_, err := svc.Create(context.Background(), view, validForm())
		require.NoError(t, err)
	})

	t.Run("Rejected submission keeps staging", func(t *testing.T) {
		svc, repo, _, view := newFixture()
		stageRequired(t, view, domain.CategoriaCedula, domain.CategoriaLicencia, domain.CategoriaContrato)
		repo.saveErr = &domain.APIError{Kind: domain.KindRejected, Status: 409, Message: "Identificación duplicada"}

		_, err := svc.Create(context.Background(), view, validForm())
		assert.Equal(t, domain.KindRejected, domain.KindOf(err))
		assert.Len(t, view.Staging().List(), 3)
	})
}

func TestConductorServiceUpdate(t *testing.T) {
	svc, repo, _, view := newFixture()
	repo.byID[5] = domain.Conductor{ID: 5, Nombre: "Viejo", Documentos: []domain.Documento{
		{Categoria: domain.CategoriaCedula, S3Key: "c/5/cedula.pdf"},
		{Categoria: domain.CategoriaLicencia, S3Key: "c/5/licencia.pdf"},
		{Categoria: domain.CategoriaContrato, S3Key: "c/5/contrato.pdf"},
	}}
	stageRequired(t, view, domain.CategoriaLicencia)

	updated, err := svc.Update(context.Background(), view, 5, validForm())
	require.NoError(t, err)
	assert.Equal(t, "Luis", updated.Nombre)

	sub := repo.submissions[0]
	require.Len(t, sub.Files, 1)
	assert.Equal(t, domain.CategoriaLicencia, sub.Files[0].Categoria)
	assert.Equal(t, map[domain.CategoriaDocumento]string{
		domain.CategoriaCedula:   "c/5/cedula.pdf",
		domain.CategoriaContrato: "c/5/contrato.pdf",
	}, sub.Existing)
}

func TestConductorServiceAI(t *testing.T) {
	svc, repo, _, view := newFixture()

	_, err := svc.CreateWithAI(context.Background(), view, form.ConductorForm{}, "")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Len(t, apiErr.Fields, 2)

	stageRequired(t, view, domain.CategoriaCedula)
	ack, err := svc.CreateWithAI(context.Background(), view, form.ConductorForm{}, "sock-9")
	require.NoError(t, err)
	assert.Equal(t, "job-1", ack.JobID)
	assert.Equal(t, "sock-9", repo.submissions[0].SocketID)
	assert.Empty(t, view.Staging().List())

	repo.byID[3] = domain.Conductor{ID: 3, Documentos: []domain.Documento{{Categoria: domain.CategoriaContrato, S3Key: "k"}}}
	stageRequired(t, view, domain.CategoriaLicencia)
	ack, err = svc.UpdateWithAI(context.Background(), view, 3, form.ConductorForm{}, "sock-9")
	require.NoError(t, err)
	assert.Equal(t, "job-2", ack.JobID)
	assert.Equal(t, "k", repo.submissions[1].Existing[domain.CategoriaContrato])
}

func TestConductorServiceExport(t *testing.T) {
	svc, _, _, view := newFixture()
	_, err := svc.List(context.Background(), view, domain.ListParams{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, svc.WriteExport(rec, view, "conductores.xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Conductores", "Estadisticas"}, f.GetSheetList())

	header, _ := f.GetCellValue("Conductores", "C2")
	assert.Equal(t, "Apellido", header)
	apellido, _ := f.GetCellValue("Conductores", "C3")
	assert.Equal(t, "A", apellido)
	estado, _ := f.GetCellValue("Conductores", "J6")
	assert.Equal(t, "desvinculado", estado)

	servicio, _ := f.GetCellValue("Estadisticas", "B3")
	assert.Equal(t, "1", servicio)
}

func TestDownloadRejectsBadID(t *testing.T) {
	svc, _, _, _ := newFixture()
	_, err := svc.Download(context.Background(), 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	dl, err := svc.Download(context.Background(), 3)
	require.NoError(t, err)
	dl.Body.Close()
}
