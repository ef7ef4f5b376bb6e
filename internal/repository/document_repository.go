package repository

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/locvowork/conductores_admin/internal/domain"
)

const documentosPath = "/api/documentos"

type documentRepository struct {
	client *Client
}

// NewDocumentRepository creates a new instance of DocumentRepository
func NewDocumentRepository(client *Client) domain.DocumentRepository {
	return &documentRepository{client: client}
}

type signedURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func (r *documentRepository) SignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", domain.NewValidationError("La clave del documento es obligatoria", domain.FieldError{Field: "key", Message: "obligatorio"})
	}
	_, raw, err := r.client.sendJSON(ctx, request{
		op:     "signed_url",
		method: http.MethodGet,
		path:   documentosPath + "/url-firma",
		query:  url.Values{"key": {key}},
	})
	if err != nil {
		return "", err
	}
	var out signedURLResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", domain.NewNetworkError("Respuesta inválida del servidor", err)
	}
	if out.URL == "" {
		return "", domain.NewNotFoundError("El servidor no devolvió una URL firmada")
	}
	return out.URL, nil
}

// Download streams the document; the caller must close Body.
func (r *documentRepository) Download(ctx context.Context, id int64) (*domain.Download, error) {
	resp, err := r.client.send(ctx, request{
		op:     "download",
		method: http.MethodGet,
		path:   documentosPath + "/descargar/" + strconv.FormatInt(id, 10),
		stream: true,
	})
	if err != nil {
		return nil, err
	}

	filename := "documento-" + strconv.FormatInt(id, 10)
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = path.Base(params["filename"])
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &domain.Download{
		Body:        resp.Body,
		ContentType: contentType,
		Filename:    filename,
		Size:        resp.ContentLength,
	}, nil
}
