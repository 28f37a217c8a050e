// Package models defines the domain types for humkit.
package models

import "time"

// Score is a Humdrum file in the library.
type Score struct {
	Path      string        `json:"path"`
	Content   []byte        `json:"-"`
	Text      string        `json:"text"`
	Metadata  ScoreMetadata `json:"metadata"`
	Checksum  string        `json:"checksum"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ScoreFile is a lightweight representation returned by list operations.
type ScoreFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScoreMetadata is what the library knows about a score without reading it
// again. Invalid scores carry the parse error and nothing else.
type ScoreMetadata struct {
	Title       string       `json:"title,omitempty"`
	Composer    string       `json:"composer,omitempty"`
	Valid       bool         `json:"valid"`
	Error       string       `json:"error,omitempty"`
	Lines       int          `json:"lines"`
	Tracks      int          `json:"tracks"`
	Spines      []Spine      `json:"spines,omitempty"`
	Duration    string       `json:"duration"` // quarter notes, as a fraction
	Measures    int          `json:"measures"`
	Barlines    int          `json:"barlines"`
	References  []Reference  `json:"references,omitempty"`
	Instruments []Instrument `json:"instruments,omitempty"`
}

// Spine describes one track.
type Spine struct {
	Track    int    `json:"track"`
	DataType string `json:"data_type"`
	Notes    int    `json:"notes"`
}

// Reference is a "!!!key: value" record.
type Reference struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Instrument is the instrument assignment of a track.
type Instrument struct {
	Track int    `json:"track"`
	Code  string `json:"code,omitempty"`
	Class string `json:"class,omitempty"`
	Name  string `json:"name,omitempty"`
}
