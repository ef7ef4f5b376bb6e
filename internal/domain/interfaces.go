package domain

import (
	"context"
	"io"
)

// UploadFile is a validated document ready to be sent upstream.
type UploadFile struct {
	Categoria     CategoriaDocumento
	Filename      string
	ContentType   string
	Data          []byte
	FechaVigencia string
}

// Submission carries a create or update request to the upstream API.
// Without files it is sent as JSON, with files as multipart.
type Submission struct {
	Conductor Conductor
	Files     []UploadFile
	// Existing maps untouched document categories to their storage keys (updates only).
	Existing map[CategoriaDocumento]string
	// SocketID correlates AI-assisted processing with notification events.
	SocketID string
}

// HasFiles reports whether the submission must be sent as multipart.
func (s Submission) HasFiles() bool {
	return len(s.Files) > 0
}

// ProcessingAck is the upstream reply to an AI-assisted create/update.
type ProcessingAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	JobID   string `json:"jobId,omitempty"`
}

// Download is a streamed binary document.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64
}

// ConductorRepository defines the interface for conductor data access.
// The data lives behind the upstream REST API.
type ConductorRepository interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	GetByID(ctx context.Context, id int64) (*Conductor, error)
	Create(ctx context.Context, sub Submission) (*Conductor, error)
	Update(ctx context.Context, id int64, sub Submission) (*Conductor, error)

	// AI-assisted variants only confirm that processing started.
	CreateWithAI(ctx context.Context, sub Submission) (*ProcessingAck, error)
	UpdateWithAI(ctx context.Context, id int64, sub Submission) (*ProcessingAck, error)
}

// DocumentRepository defines access to stored conductor documents.
type DocumentRepository interface {
	SignedURL(ctx context.Context, key string) (string, error)
	Download(ctx context.Context, id int64) (*Download, error)
}
