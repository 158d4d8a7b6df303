package docqa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// ErrNotPDF is the Cause of a failure for bytes that do not parse as a PDF.
var ErrNotPDF = errors.New("not a readable PDF document")

// UploadResponse is the success body of POST /upload.
type UploadResponse struct {
	DocID string `json:"doc_id"`
}

// UploadResult is what Upload returns. DocumentID is set only on success.
type UploadResult struct {
	Outcome    Outcome
	DocumentID string
	Pages      int
}

// Uploader sends PDF documents to the API.
type Uploader struct {
	baseURL  string
	executor *Executor
	tokens   TokenSource
	logger   *slog.Logger
	now      func() time.Time
}

// NewUploader creates an uploader against the API at baseURL. A nil logger uses slog.Default().
func NewUploader(baseURL string, executor *Executor, tokens TokenSource, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		baseURL:  strings.TrimRight(baseURL, "/"),
		executor: executor,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

// Upload validates data as a PDF and posts it. Nothing is sent for invalid documents
// or when no usable token is available.
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte) UploadResult {
	var result UploadResult

	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		result.Outcome = NewFailureOutcome(KindUnknown, "Please select a PDF file.")
		return result
	}

	pages, err := countPages(data)
	if err != nil {
		u.logger.Debug("rejected upload", "filename", name, "error", err)
		result.Outcome = fail(&Failure{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("%s is not a readable PDF document.", name),
			Cause:   err,
		})
		return result
	}
	result.Pages = pages

	token, failure := authorize(ctx, u.tokens, u.now())
	if failure != nil {
		result.Outcome = fail(failure)
		return result
	}

	query := url.Values{}
	query.Set("filename", name)
	query.Set("auth", token)

	req := &Request{
		URL:    u.baseURL + "/upload?" + query.Encode(),
		Method: http.MethodPost,
		Header: http.Header{
			"Content-Type": []string{"application/pdf"},
		},
		Body: data,
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())

	u.logger.Debug("uploading document",
		"filename", name,
		"bytes", len(data),
		"pages", pages)

	result.Outcome = u.executor.Execute(ctx, req)
	if !result.Outcome.IsSuccess() {
		if result.Outcome.Kind() == KindAuthFailure {
			if err := u.tokens.Invalidate(ctx); err != nil {
				u.logger.Warn("failed to invalidate rejected token", "error", err)
			}
		}
		return result
	}

	var resp UploadResponse
	if err := result.Outcome.Decode(&resp); err != nil || resp.DocID == "" {
		result.Outcome = NewFailureOutcome(KindUnknown, "Upload finished but no document ID was returned. Please try again.")
		return result
	}
	result.DocumentID = resp.DocID
	return result
}

// countPages parses data as a PDF and returns its page count.
func countPages(data []byte) (pages int, err error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrNotPDF)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotPDF, err)
	}
	pages = reader.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return pages, nil
}
