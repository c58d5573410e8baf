// Package pipeline orchestrates the full question-answering flow: phase
// resolution, retrieval, prompt assembly, generation, verification, and
// response formatting. It is the single entry point shared by the HTTP
// API, the MCP server, and the CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/provetch/phasecheck/internal/chunker"
	"github.com/provetch/phasecheck/internal/composer"
	"github.com/provetch/phasecheck/internal/document"
	"github.com/provetch/phasecheck/internal/engine"
	"github.com/provetch/phasecheck/internal/format"
	"github.com/provetch/phasecheck/internal/phase"
	"github.com/provetch/phasecheck/internal/retrieval"
	"github.com/provetch/phasecheck/internal/session"
	"github.com/provetch/phasecheck/internal/storage"
	"github.com/provetch/phasecheck/internal/verdict"
)

var (
	// ErrEmptyQuestion is returned when a question is blank after trimming.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrEmptyDocument is returned when an uploaded file yields no text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrEngineUnavailable is returned when the model backend cannot be reached.
	ErrEngineUnavailable = errors.New("model engine is not available")
)

// Options tunes the pipeline. Zero values fall back to the defaults below.
type Options struct {
	TopK            int
	MaxContextChars int
	MaxTokens       int
	VerifyMaxTokens int
	Verify          bool
	HistoryWindow   int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = 8000
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.VerifyMaxTokens <= 0 {
		o.VerifyMaxTokens = 512
	}
	return o
}

// Service wires the model engine, vector index, session store, and
// persistence into the ask/upload operations.
type Service struct {
	engine    engine.Engine
	retriever *retrieval.Retriever
	embedder  *retrieval.Embedder
	vectors   retrieval.VectorStore
	sessions  *session.Store
	composer  *composer.Composer
	splitter  *chunker.Splitter
	files     *storage.Files
	store     *storage.Store
	opts      Options
	log       *slog.Logger
}

// Deps collects the collaborators a Service needs.
type Deps struct {
	Engine   engine.Engine
	Vectors  retrieval.VectorStore
	Sessions *session.Store
	Splitter *chunker.Splitter
	Files    *storage.Files
	Store    *storage.Store
	Log      *slog.Logger
}

// NewService assembles the pipeline from its collaborators.
func NewService(d Deps, opts Options) *Service {
	opts = opts.withDefaults()
	if d.Log == nil {
		d.Log = slog.Default()
	}
	emb := retrieval.NewEmbedder(d.Engine)
	return &Service{
		engine:    d.Engine,
		retriever: retrieval.NewRetriever(emb, d.Vectors),
		embedder:  emb,
		vectors:   d.Vectors,
		sessions:  d.Sessions,
		composer:  composer.New(opts.HistoryWindow),
		splitter:  d.Splitter,
		files:     d.Files,
		store:     d.Store,
		opts:      opts,
		log:       d.Log,
	}
}

// AskRequest is one question against the knowledge base.
type AskRequest struct {
	SessionID string
	Question  string
	Phase     string // explicit override, "auto", or empty
	Verify    *bool  // per-request override of Options.Verify
}

// AskResponse is the completed analysis for one question.
type AskResponse struct {
	SessionID          string
	Answer             string
	Phase              phase.Phase
	Verdict            *verdict.Verdict
	ContextChunks      int
	ConversationLength int
}

// Ask runs the full analysis flow for one question. The session is created
// on first use; an empty SessionID gets a fresh one.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !s.engine.IsRunning(ctx) {
		return nil, ErrEngineUnavailable
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}
	s.sessions.GetOrCreate(sessionID)

	active := phase.Resolve(req.Phase, s.sessions.Phase(sessionID))
	p := phase.Get(active)

	// Retrieval is scoped to the session's uploads when it has any;
	// otherwise the whole index is searched.
	sources := s.sessions.Files(sessionID)
	chunks, err := s.retriever.Retrieve(ctx, question, s.opts.TopK, sources)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	rendered := retrieval.RenderContext(chunks, s.opts.MaxContextChars)

	history := s.sessions.History(sessionID)
	prompt := s.composer.BuildAnalysis(p, rendered, history, sources, question)
	s.log.Debug("analysis prompt assembled",
		"session", sessionID, "phase", active,
		"chunks", len(chunks), "tokens", composer.EstimateTokens(prompt))

	raw, err := s.engine.Generate(ctx, prompt, s.opts.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating analysis: %w", err)
	}
	answer := format.StripEcho(raw)

	// A question records turns only. The session's phase changes on upload
	// detection, never from a per-request override.
	s.sessions.AppendTurn(sessionID, "user", question)
	s.sessions.AppendTurn(sessionID, "assistant", answer)

	resp := &AskResponse{
		SessionID:          sessionID,
		Phase:              p,
		ContextChunks:      len(chunks),
		ConversationLength: len(history) + 2,
	}

	if verifyOn(s.opts.Verify, req.Verify) {
		v := s.verify(ctx, question, answer, rendered, p.Criteria)
		resp.Verdict = &v
	}

	title := strings.ToUpper(p.Name) + " PHASE ANALYSIS"
	resp.Answer = format.Format(title, answer)
	return resp, nil
}

// verify runs the second generation pass. A verification failure never
// fails the ask; it degrades to the unknown verdict.
func (s *Service) verify(ctx context.Context, question, answer, rendered string, criteria []string) verdict.Verdict {
	prompt := s.composer.BuildVerification(question, answer, rendered, criteria)
	raw, err := s.engine.Generate(ctx, prompt, s.opts.VerifyMaxTokens)
	if err != nil {
		s.log.Warn("verification pass failed", "error", err)
		return verdict.Unavailable("Verification could not be completed: the model backend failed to generate a verdict.")
	}
	return verdict.Parse(raw)
}

func verifyOn(def bool, override *bool) bool {
	if override != nil {
		return *override
	}
	return def
}

// UploadRequest is one file submitted for indexing into a session.
type UploadRequest struct {
	SessionID string
	Filename  string
	Data      []byte
}

// UploadResponse reports the outcome of an upload.
type UploadResponse struct {
	SessionID     string
	Filename      string
	DetectedPhase string
	ChunkCount    int
}

// Upload persists the file, extracts and chunks its text, embeds the
// chunks into the vector index under the original filename, and tags the
// session with the detected lifecycle phase.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if !document.Supported(req.Filename) {
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupported, req.Filename)
	}
	if !s.engine.IsRunning(ctx) {
		return nil, ErrEngineUnavailable
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}
	s.sessions.GetOrCreate(sessionID)

	storedPath, err := s.files.Save(req.Filename, req.Data)
	if err != nil {
		return nil, fmt.Errorf("persisting upload: %w", err)
	}

	docs, err := document.Load(storedPath)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, req.Filename)
	}
	// Index under the upload name so session-scoped retrieval can match it.
	for i := range docs {
		docs[i].Source = req.Filename
	}

	var combined strings.Builder
	for _, d := range docs {
		combined.WriteString(d.Content)
	}
	if strings.TrimSpace(combined.String()) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, req.Filename)
	}

	count, err := s.IndexDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}

	detected := phase.Detect(combined.String(), req.Filename)
	s.sessions.RecordUpload(sessionID, req.Filename)
	s.sessions.SetPhase(sessionID, detected)

	contentType := docs[0].Type
	if err := s.store.SaveUpload(storage.Upload{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Filename:    req.Filename,
		StoredPath:  storedPath,
		ContentType: contentType,
		ChunkCount:  count,
	}); err != nil {
		s.log.Warn("recording upload metadata failed", "file", req.Filename, "error", err)
	}

	s.log.Info("document indexed",
		"session", sessionID, "file", req.Filename,
		"phase", detected, "chunks", count)

	return &UploadResponse{
		SessionID:     sessionID,
		Filename:      req.Filename,
		DetectedPhase: detected,
		ChunkCount:    count,
	}, nil
}

// IndexDocuments chunks, embeds, and inserts documents into the vector
// index, returning the number of chunks stored.
func (s *Service) IndexDocuments(ctx context.Context, docs []document.Document) (int, error) {
	chunks := s.splitter.Split(docs)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}

	records := make([]retrieval.Record, len(chunks))
	for i, c := range chunks {
		records[i] = retrieval.Record{
			ID:         uuid.New().String(),
			SourceID:   c.Source,
			SourceType: c.Type,
			TextChunk:  c.Text,
			Embedding:  vectors[i],
		}
	}
	if err := s.vectors.Insert(records); err != nil {
		return 0, fmt.Errorf("storing vectors: %w", err)
	}
	return len(records), nil
}

// Status is a point-in-time health snapshot.
type Status struct {
	EngineRunning bool `json:"engine_running"`
	Vectors       int  `json:"vectors"`
	Sessions      int  `json:"sessions"`
	Uploads       int  `json:"uploads"`
}

// Status reports engine reachability and store sizes.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		EngineRunning: s.engine.IsRunning(ctx),
		Sessions:      s.sessions.Len(),
	}
	if n, err := s.vectors.Count(); err == nil {
		st.Vectors = n
	}
	if n, err := s.store.CountUploads(); err == nil {
		st.Uploads = n
	}
	return st
}

// Sessions exposes the session store for the API layer.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// Uploads returns the most recent entries from the uploads ledger.
func (s *Service) Uploads(limit int) ([]storage.Upload, error) {
	return s.store.ListUploads(limit)
}

// ClearIndex drops every vector from the index.
func (s *Service) ClearIndex() error {
	return s.vectors.Clear()
}
