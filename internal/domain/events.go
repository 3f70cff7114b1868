package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventTypePaperEnriched is emitted after a newly enriched paper is stored.
const EventTypePaperEnriched = "paper.enriched"

// PaperEnrichedEvent announces that a paper record was created or refreshed.
type PaperEnrichedEvent struct {
	EventID    string       `json:"event_id"`
	EventType  string       `json:"event_type"`
	PaperID    uuid.UUID    `json:"paper_id"`
	DOI        string       `json:"doi"`
	Title      string       `json:"title"`
	Badges     []string     `json:"badges"`
	Sources    []SourceType `json:"sources"`
	Refreshed  bool         `json:"refreshed"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewPaperEnrichedEvent builds the event for a stored paper.
func NewPaperEnrichedEvent(p *Paper, refreshed bool, now time.Time) PaperEnrichedEvent {
	return PaperEnrichedEvent{
		EventID:    uuid.New().String(),
		EventType:  EventTypePaperEnriched,
		PaperID:    p.ID,
		DOI:        p.DOI,
		Title:      p.Title,
		Badges:     p.Badges,
		Sources:    p.Sources,
		Refreshed:  refreshed,
		OccurredAt: now,
	}
}
