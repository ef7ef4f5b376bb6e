package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"

	"github.com/spf13/cast"

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/repository/builder"
)

const conductoresPath = "/api/conductores"

// Multipart field names the upstream API reads.
const (
	FieldFiles             = "files"
	FieldCategorias        = "categorias"
	FieldFechasVigencia    = "fechas_vigencia"
	FieldDocumentoExistent = "documento_existente_"
	HeaderSocketID         = "socket-id"
)

// Fields never sent as form values: server-owned or carried as parts.
var skipFormFields = map[string]bool{
	"id":                 true,
	"documentos":         true,
	"created_at":         true,
	"updated_at":         true,
	"creado_por_id":      true,
	"actualizado_por_id": true,
}

type conductorRepository struct {
	client *Client
}

// NewConductorRepository creates a new instance of ConductorRepository
func NewConductorRepository(client *Client) domain.ConductorRepository {
	return &conductorRepository{client: client}
}

func (r *conductorRepository) List(ctx context.Context, params domain.ListParams) (*domain.ListResult, error) {
	query, err := builder.FromParams(params).BuildSafe()
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	env, raw, err := r.client.sendJSON(ctx, request{
		op:     "list",
		method: http.MethodGet,
		path:   conductoresPath,
		query:  query,
	})
	if err != nil {
		return nil, err
	}

	var result domain.ListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, domain.NewNetworkError("Respuesta inválida del servidor", err)
	}
	result.Success = env.Success
	if result.Data == nil {
		result.Data = []domain.Conductor{}
	}
	return &result, nil
}

func (r *conductorRepository) GetByID(ctx context.Context, id int64) (*domain.Conductor, error) {
	env, _, err := r.client.sendJSON(ctx, request{
		op:     "get",
		method: http.MethodGet,
		path:   conductoresPath + "/" + strconv.FormatInt(id, 10),
	})
	if err != nil {
		return nil, err
	}
	var c domain.Conductor
	if err := decodeData(env, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conductorRepository) Create(ctx context.Context, sub domain.Submission) (*domain.Conductor, error) {
	return r.save(ctx, "create", http.MethodPost, conductoresPath, sub)
}

func (r *conductorRepository) Update(ctx context.Context, id int64, sub domain.Submission) (*domain.Conductor, error) {
	return r.save(ctx, "update", http.MethodPut, conductoresPath+"/"+strconv.FormatInt(id, 10), sub)
}

func (r *conductorRepository) CreateWithAI(ctx context.Context, sub domain.Submission) (*domain.ProcessingAck, error) {
	return r.process(ctx, "create_ai", http.MethodPost, conductoresPath+"/crear-con-ia", sub)
}

func (r *conductorRepository) UpdateWithAI(ctx context.Context, id int64, sub domain.Submission) (*domain.ProcessingAck, error) {
	return r.process(ctx, "update_ai", http.MethodPut, conductoresPath+"/actualizar-con-ia/"+strconv.FormatInt(id, 10), sub)
}

func (r *conductorRepository) save(ctx context.Context, op, method, path string, sub domain.Submission) (*domain.Conductor, error) {
	req, err := submissionRequest(op, method, path, sub)
	if err != nil {
		return nil, err
	}
	env, _, err := r.client.sendJSON(ctx, req)
	if err != nil {
		return nil, err
	}
	var c domain.Conductor
	if err := decodeData(env, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conductorRepository) process(ctx context.Context, op, method, path string, sub domain.Submission) (*domain.ProcessingAck, error) {
	req, err := submissionRequest(op, method, path, sub)
	if err != nil {
		return nil, err
	}
	if sub.SocketID != "" {
		req.header = http.Header{}
		req.header.Set(HeaderSocketID, sub.SocketID)
	}

	_, raw, err := r.client.sendJSON(ctx, req)
	if err != nil {
		return nil, err
	}
	var ack domain.ProcessingAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, domain.NewNetworkError("Respuesta inválida del servidor", err)
	}
	return &ack, nil
}

// submissionRequest encodes a submission as JSON, or as multipart when it carries files.
func submissionRequest(op, method, path string, sub domain.Submission) (request, error) {
	req := request{op: op, method: method, path: path}
	if !sub.HasFiles() {
		body, err := json.Marshal(sub.Conductor)
		if err != nil {
			return req, fmt.Errorf("encode conductor: %w", err)
		}
		req.body = bytes.NewReader(body)
		req.contentType = "application/json"
		return req, nil
	}

	body, contentType, err := encodeMultipart(sub)
	if err != nil {
		return req, err
	}
	req.body = body
	req.contentType = contentType
	return req, nil
}

func encodeMultipart(sub domain.Submission) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields, err := scalarFields(sub.Conductor)
	if err != nil {
		return nil, "", err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	categorias := make([]domain.CategoriaDocumento, 0, len(sub.Files))
	fechas := make(map[domain.CategoriaDocumento]string)
	for _, f := range sub.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldFiles, f.Filename))
		h.Set("Content-Type", f.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", f.Filename, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write file part %s: %w", f.Filename, err)
		}
		categorias = append(categorias, f.Categoria)
		if f.FechaVigencia != "" {
			fechas[f.Categoria] = f.FechaVigencia
		}
	}

	catJSON, _ := json.Marshal(categorias)
	if err := w.WriteField(FieldCategorias, string(catJSON)); err != nil {
		return nil, "", fmt.Errorf("write categorias: %w", err)
	}
	fechasJSON, _ := json.Marshal(fechas)
	if err := w.WriteField(FieldFechasVigencia, string(fechasJSON)); err != nil {
		return nil, "", fmt.Errorf("write fechas_vigencia: %w", err)
	}

	existing := make([]string, 0, len(sub.Existing))
	for cat := range sub.Existing {
		existing = append(existing, string(cat))
	}
	sort.Strings(existing)
	for _, cat := range existing {
		key := sub.Existing[domain.CategoriaDocumento(cat)]
		if err := w.WriteField(FieldDocumentoExistent+cat, key); err != nil {
			return nil, "", fmt.Errorf("write existing document %s: %w", cat, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// scalarFields flattens the conductor's JSON form into string form values.
func scalarFields(c domain.Conductor) (map[string]string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode conductor: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode conductor: %w", err)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if skipFormFields[k] || v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}
