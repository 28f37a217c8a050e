package api

import (
	"github.com/starford/humkit/internal/index"
	"github.com/starford/humkit/internal/scoreservice"
)

// CreateScoreRequest is the request body for creating a score.
type CreateScoreRequest struct {
	Path    string `json:"path" example:"bach/chorale001.krn" validate:"required"`
	Content string `json:"content" example:"**kern\n4c\n*-\n" validate:"required"`
}

// UpdateScoreRequest is the request body for updating a score.
type UpdateScoreRequest struct {
	Content string `json:"content" example:"**kern\n4d\n*-\n" validate:"required"`
}

// MoveScoreRequest is the request body for renaming a score.
type MoveScoreRequest struct {
	From string `json:"from" example:"old.krn" validate:"required"`
	To   string `json:"to" example:"bach/new.krn" validate:"required"`
}

// ScoreDetail is the full score response type (aliased from the domain layer).
type ScoreDetail = scoreservice.ScoreDetail

// ScoreListResponse wraps paginated score listings.
type ScoreListResponse struct {
	Scores []scoreservice.ScoreListItem `json:"scores" validate:"required"`
	Total  int                          `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ReferencesResponse wraps reference lookups.
type ReferencesResponse struct {
	References []index.ReferenceHit `json:"references" validate:"required"`
}

// SpinesResponse wraps the spines of one score.
type SpinesResponse struct {
	Spines []scoreservice.SpineView `json:"spines" validate:"required"`
}

// TimelineResponse wraps the timeline of one score.
type TimelineResponse struct {
	Lines []scoreservice.TimelineEntry `json:"lines" validate:"required"`
}

// UploadResponse lists the scores created by one upload.
type UploadResponse = scoreservice.ImportResult
