package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/humkit/internal/checksum"
	"github.com/starford/humkit/internal/index"
	"github.com/starford/humkit/internal/midiexport"
	"github.com/starford/humkit/internal/scoreservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc  *scoreservice.Service
	midi midiexport.Options
}

// NewHandler creates a new Handler.
func NewHandler(svc *scoreservice.Service, midi midiexport.Options) *Handler {
	return &Handler{svc: svc, midi: midi}
}

// scorePath extracts the score path from the wildcard part of the URL.
// Supports encoded slashes from OpenAPI clients (e.g. bach%2F001.krn).
func scorePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func requirePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := scorePath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return "", false
	}
	return p, true
}

// ListScores handles GET /api/scores.
//
//	@Summary		List scores with optional pagination and filtering
//	@Tags			scores
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			type		query		string	false	"Only scores with a spine of this data type"
//	@Param			composer	query		string	false	"Composer substring"
//	@Param			invalid		query		bool	false	"Only scores that failed to parse"
//	@Param			sort		query		string	false	"Sort field"	Enums(path, title, composer, updated)
//	@Success		200			{object}	ScoreListResponse
//	@Security		BearerAuth
//	@Router			/scores [get]
func (h *Handler) ListScores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := index.ListQuery{
		DataType: q.Get("type"),
		Composer: q.Get("composer"),
		Sort:     q.Get("sort"),
	}
	lq.Limit, _ = strconv.Atoi(q.Get("limit"))
	lq.Offset, _ = strconv.Atoi(q.Get("offset"))
	lq.Invalid, _ = strconv.ParseBool(q.Get("invalid"))

	items, total, err := h.svc.List(r.Context(), lq)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if items == nil {
		items = []scoreservice.ScoreListItem{}
	}
	writeJSON(w, http.StatusOK, ScoreListResponse{Scores: items, Total: total})
}

// GetScore handles GET /api/scores/*.
//
//	@Summary		Get a single score by path
//	@Tags			scores
//	@Produce		json
//	@Param			path	path		string	true	"Score path"
//	@Success		200		{object}	ScoreDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scores/{path} [get]
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	score, err := h.svc.Get(r.Context(), p)
	if err != nil {
		writeServiceError(w, "get score", p, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(score.Checksum))
	writeJSON(w, http.StatusOK, score)
}

// CreateScore handles POST /api/scores.
//
//	@Summary		Create a new score
//	@Tags			scores
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateScoreRequest	true	"Score to create"
//	@Success		201		{object}	ScoreDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scores [post]
func (h *Handler) CreateScore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	score, err := h.svc.Create(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeServiceError(w, "create score", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, score)
}

// UpdateScore handles PUT /api/scores/*.
//
//	@Summary		Update a score with optimistic concurrency
//	@Tags			scores
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Score path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateScoreRequest	true	"Updated content"
//	@Success		200			{object}	ScoreDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scores/{path} [put]
func (h *Handler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	var req UpdateScoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	score, err := h.svc.Update(r.Context(), p, []byte(req.Content), r.Header.Get("If-Match"))
	if err != nil {
		writeServiceError(w, "update score", p, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// MoveScore handles POST /api/scores/move.
//
//	@Summary		Rename a score
//	@Tags			scores
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveScoreRequest	true	"Old and new path"
//	@Success		200		{object}	ScoreDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scores/move [post]
func (h *Handler) MoveScore(w http.ResponseWriter, r *http.Request) {
	var req MoveScoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	score, err := h.svc.Move(r.Context(), req.From, req.To)
	if err != nil {
		writeServiceError(w, "move score", req.From, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// DeleteScore handles DELETE /api/scores/*.
//
//	@Summary		Delete a score
//	@Tags			scores
//	@Param			path	path	string	true	"Score path"
//	@Success		204		"Score deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scores/{path} [delete]
func (h *Handler) DeleteScore(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p); err != nil {
		writeServiceError(w, "delete score", p, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Info handles GET /api/info/*.
//
//	@Summary		Indexed metadata of a score
//	@Tags			scores
//	@Produce		json
//	@Param			path	path		string	true	"Score path"
//	@Success		200		{object}	models.ScoreMetadata
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/info/{path} [get]
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	meta, err := h.svc.Info(r.Context(), p)
	if err != nil {
		writeServiceError(w, "info", p, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Spines handles GET /api/spines/*.
//
//	@Summary		Spines of a score
//	@Tags			analysis
//	@Produce		json
//	@Param			path	path		string	true	"Score path"
//	@Success		200		{object}	SpinesResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/spines/{path} [get]
func (h *Handler) Spines(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	spines, err := h.svc.Spines(r.Context(), p)
	if err != nil {
		writeServiceError(w, "spines", p, err)
		return
	}
	writeJSON(w, http.StatusOK, SpinesResponse{Spines: spines})
}

// Timeline handles GET /api/timeline/*.
//
//	@Summary		Timing of every data line and barline
//	@Tags			analysis
//	@Produce		json
//	@Param			path	path		string	true	"Score path"
//	@Success		200		{object}	TimelineResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/timeline/{path} [get]
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	tl, err := h.svc.Timeline(r.Context(), p)
	if err != nil {
		writeServiceError(w, "timeline", p, err)
		return
	}
	if tl == nil {
		tl = []scoreservice.TimelineEntry{}
	}
	writeJSON(w, http.StatusOK, TimelineResponse{Lines: tl})
}

// Analysis handles GET /api/analysis/*.
//
//	@Summary		Slur, tie, hand, strophe and accidental analysis
//	@Tags			analysis
//	@Produce		json
//	@Param			path	path		string	true	"Score path"
//	@Success		200		{object}	scoreservice.Analysis
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/analysis/{path} [get]
func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Analyze(r.Context(), p)
	if err != nil {
		writeServiceError(w, "analysis", p, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// MIDI handles GET /api/midi/*.
//
//	@Summary		Download a score as a Standard MIDI File
//	@Tags			export
//	@Produce		audio/midi
//	@Param			path	path	string	true	"Score path"
//	@Param			tempo	query	number	false	"Tempo override in quarter notes per minute"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/midi/{path} [get]
func (h *Handler) MIDI(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePath(w, r)
	if !ok {
		return
	}
	f, err := h.svc.Open(r.Context(), p)
	if err != nil {
		writeServiceError(w, "midi", p, err)
		return
	}
	opts := h.midi
	if v, err := strconv.ParseFloat(r.URL.Query().Get("tempo"), 64); err == nil && v > 0 {
		opts.Tempo = v
	}
	var buf bytes.Buffer
	if err := midiexport.Write(&buf, f, opts); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		return
	}
	name := strings.TrimSuffix(path.Base(p), path.Ext(p)) + ".mid"
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across titles, composers, comments and lyrics
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", q, err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// References handles GET /api/references.
//
//	@Summary		Find reference records by key
//	@Tags			search
//	@Produce		json
//	@Param			key		query		string	true	"Reference key, e.g. COM"
//	@Param			value	query		string	false	"Value substring"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	ReferencesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/references [get]
func (h *Handler) References(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'key' is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	hits, err := h.svc.References(r.Context(), key, q.Get("value"), limit)
	if err != nil {
		writeServiceError(w, "references", key, err)
		return
	}
	if hits == nil {
		hits = []index.ReferenceHit{}
	}
	writeJSON(w, http.StatusOK, ReferencesResponse{References: hits})
}
