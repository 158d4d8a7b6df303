package docqa

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID carries an identifier that is constant across the attempts of one call.
const HeaderRequestID = "X-Request-ID"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	DocID    string `json:"doc_id"`
	Question string `json:"question"`
}

// QueryResponse is the success body of POST /query.
type QueryResponse struct {
	Answer            string `json:"answer"`
	IsFallback        bool   `json:"is_fallback,omitempty"`
	DocIDCorrected    bool   `json:"doc_id_corrected,omitempty"`
	CorrectedDocID    string `json:"corrected_doc_id,omitempty"`
	OriginalDocID     string `json:"original_doc_id,omitempty"`
	CorrectionMessage string `json:"correction_message,omitempty"`
}

// NoticeSource says which side changed the document identifier.
type NoticeSource string

const (
	// NoticeClient is a substitution made by the local Corrector.
	NoticeClient NoticeSource = "client"

	// NoticeServer is a substitution reported by the backend.
	NoticeServer NoticeSource = "server"
)

// Notice tells the caller that the session's document identifier changed.
type Notice struct {
	Source  NoticeSource
	From    string
	To      string
	Message string
}

// QueryResult is what Ask returns. Outcome is always set; Answer and IsFallback are
// only meaningful when Outcome.IsSuccess(). Notices may be present either way.
type QueryResult struct {
	Outcome    Outcome
	Answer     string
	IsFallback bool

	// DocumentID is the identifier that was sent.
	DocumentID string

	Notices []Notice
}

// SessionConfig holds session configuration options.
type SessionConfig struct {
	// Corrector rewrites known-bad identifiers before sending.
	// Default: StaticCorrector over DefaultCorrections()
	Corrector Corrector

	// Logger for session events.
	// Default: slog.Default()
	Logger *slog.Logger

	// Now is the clock used for token expiry checks.
	// Default: time.Now
	Now func() time.Time

	// DocumentID is the initial document identifier.
	DocumentID string
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*SessionConfig)

// WithCorrector replaces the identifier corrector.
func WithCorrector(c Corrector) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.Corrector = c
	}
}

// WithDocumentID sets the initial document identifier.
func WithDocumentID(id string) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.DocumentID = id
	}
}

// WithSessionLogger sets a custom logger for the session.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.Logger = logger
	}
}

// WithClock sets the clock used to check token expiry.
func WithClock(now func() time.Time) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.Now = now
	}
}

// Session is one conversation about one document. It remembers the document
// identifier and adopts corrections so later questions use the right one.
//
// Callers are expected to wait for Ask to return before asking again; the identifier
// itself is guarded so concurrent use is safe, but answers may then race with corrections.
type Session struct {
	baseURL   string
	executor  *Executor
	tokens    TokenSource
	corrector Corrector
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.RWMutex
	docID string
}

// NewSession creates a session against the API at baseURL.
func NewSession(baseURL string, executor *Executor, tokens TokenSource, opts ...SessionOption) *Session {
	cfg := &SessionConfig{
		Corrector: NewStaticCorrector(DefaultCorrections()),
		Logger:    slog.Default(),
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Corrector == nil {
		cfg.Corrector = NopCorrector{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Session{
		baseURL:   strings.TrimRight(baseURL, "/"),
		executor:  executor,
		tokens:    tokens,
		corrector: cfg.Corrector,
		logger:    cfg.Logger,
		now:       cfg.Now,
		docID:     strings.TrimSpace(cfg.DocumentID),
	}
}

// DocumentID returns the identifier the next question will use.
func (s *Session) DocumentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docID
}

// SetDocumentID switches the session to another document.
func (s *Session) SetDocumentID(id string) {
	s.mu.Lock()
	s.docID = strings.TrimSpace(id)
	s.mu.Unlock()
}

// Ask sends question about the session's document.
func (s *Session) Ask(ctx context.Context, question string) QueryResult {
	var result QueryResult

	question = strings.TrimSpace(question)
	docID := s.DocumentID()
	if docID == "" {
		result.Outcome = NewFailureOutcome(KindUnknown, "Please enter a document ID.")
		return result
	}
	if question == "" {
		result.Outcome = NewFailureOutcome(KindUnknown, "Please enter a question.")
		return result
	}

	if c := s.corrector.Correct(docID); c.Corrected {
		s.logger.Info("applied known document id correction",
			"from", docID,
			"to", c.ID)
		result.Notices = append(result.Notices, Notice{
			Source:  NoticeClient,
			From:    docID,
			To:      c.ID,
			Message: c.Note,
		})
		s.adopt(docID, c.ID)
		docID = c.ID
	}
	result.DocumentID = docID

	token, failure := authorize(ctx, s.tokens, s.now())
	if failure != nil {
		result.Outcome = fail(failure)
		return result
	}

	body, err := json.Marshal(QueryRequest{DocID: docID, Question: question})
	if err != nil {
		result.Outcome = NewFailureOutcome(KindUnknown, "")
		return result
	}

	req := &Request{
		URL:    s.baseURL + "/query",
		Method: http.MethodPost,
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{token},
		},
		Body: body,
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())

	result.Outcome = s.executor.Execute(ctx, req)
	if !result.Outcome.IsSuccess() {
		if result.Outcome.Kind() == KindAuthFailure {
			if err := s.tokens.Invalidate(ctx); err != nil {
				s.logger.Warn("failed to invalidate rejected token", "error", err)
			}
		}
		return result
	}

	var resp QueryResponse
	if err := result.Outcome.Decode(&resp); err != nil {
		result.Outcome = NewFailureOutcome(KindUnknown, "The server returned an unexpected answer format. Please try again.")
		return result
	}
	result.Answer = resp.Answer
	result.IsFallback = resp.IsFallback

	if resp.DocIDCorrected && resp.CorrectedDocID != "" {
		from := resp.OriginalDocID
		if from == "" {
			from = docID
		}
		s.logger.Info("server applied document id correction",
			"from", from,
			"to", resp.CorrectedDocID)
		message := resp.CorrectionMessage
		if message == "" {
			message = "Document ID was automatically corrected from " + from + " to " + resp.CorrectedDocID
		}
		result.Notices = append(result.Notices, Notice{
			Source:  NoticeServer,
			From:    from,
			To:      resp.CorrectedDocID,
			Message: message,
		})
		s.adopt(docID, resp.CorrectedDocID)
	}

	return result
}

// adopt replaces the session identifier unless the caller switched documents meanwhile.
func (s *Session) adopt(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docID == from {
		s.docID = to
	}
}
