package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// Listing limits shared by all backends.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// normalizeLimit clamps a caller-provided list limit.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// decodeLead unmarshals a stored record and applies the authoritative
// first-contact column, which upserts never move forward.
func decodeLead(data []byte, firstContact time.Time) (*models.LeadRecord, error) {
	var rec models.LeadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lead record: %w", err)
	}
	rec.FirstContact = firstContact.UTC()
	return &rec, nil
}

// decodeIdentity fills q.Identity from stored JSON; a corrupt value keeps only the id.
func decodeIdentity(data []byte, q *models.UnansweredQuestion) {
	if err := json.Unmarshal(data, &q.Identity); err != nil {
		slog.Warn("store: corrupt identity in unanswered log", "error", err, "id", q.ID)
		q.Identity = models.UserIdentity{ID: q.UserID}
	}
}
