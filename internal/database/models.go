package database

import (
	"time"

	"github.com/ZanzyTHEbar/similar-dev-search/internal/activity"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/similarity"
	"github.com/google/uuid"
	"github.com/tidwall/pretty"
)

// Snapshot is a stored activity document
type Snapshot struct {
	ID         string    `json:"id" db:"id"`
	Developers int       `json:"developers" db:"developers"`
	SizeBytes  int       `json:"size_bytes" db:"size_bytes"`
	Document   []byte    `json:"-" db:"document"`
	SourceIP   string    `json:"-" db:"source_ip"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// NewSnapshot creates a snapshot with a generated ID. The document is
// compacted without reordering keys.
func NewSnapshot(document []byte, developers int, sourceIP string) *Snapshot {
	doc := pretty.Ugly(document)
	return &Snapshot{
		ID:         uuid.New().String(),
		Developers: developers,
		SizeBytes:  len(doc),
		Document:   doc,
		SourceIP:   sourceIP,
		CreatedAt:  time.Now().UTC(),
	}
}

// Activity decodes the stored document
func (s *Snapshot) Activity() (similarity.Activity, error) {
	return activity.Decode(s.Document)
}
