// Package models defines the persisted lead record.
package models

import (
	"strings"
	"time"
)

// SourceTelegram marks records collected through the Telegram bot.
const SourceTelegram = "telegram"

// LeadRecord is a completed dialog outcome persisted for staff follow-up.
// Only UserID and Completed are always present; everything else depends on
// the dialog branch that produced the record.
type LeadRecord struct {
	UserID              int64      `json:"userId"`
	Username            string     `json:"username,omitempty"`
	FullName            string     `json:"fullName,omitempty"`
	FirstContact        time.Time  `json:"firstContactTimestamp"`
	CompletedAt         time.Time  `json:"completedAt"`
	DialogKind          DialogKind `json:"dialogKind"`
	HasProject          *bool      `json:"hasProject,omitempty"`
	ObjectType          string     `json:"objectType,omitempty"`
	Area                string     `json:"area,omitempty"`
	Region              string     `json:"region,omitempty"`
	Timeline            string     `json:"timeline,omitempty"`
	Stage               string     `json:"stage,omitempty"`
	Service             string     `json:"service,omitempty"`
	ContactMethod       string     `json:"contactMethod,omitempty"`
	Interests           []string   `json:"interests,omitempty"`
	GiveawayParticipant *bool      `json:"giveawayParticipant,omitempty"`
	Contact             string     `json:"contact,omitempty"`
	Question            string     `json:"question,omitempty"`
	Files               []string   `json:"files,omitempty"`
	Completed           bool       `json:"completed"`
	Source              string     `json:"source,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// Yes/no answer values stored for boolean survey fields.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// LeadFromSession assembles the persisted record from a finished session.
func LeadFromSession(s *Session, completedAt time.Time) LeadRecord {
	rec := LeadRecord{
		UserID:        s.UserID,
		Username:      s.Identity.Username,
		FullName:      s.Identity.FullName(),
		FirstContact:  s.StartedAt,
		CompletedAt:   completedAt,
		DialogKind:    s.Kind,
		ObjectType:    s.Text(FieldObjectType),
		Area:          s.Text(FieldArea),
		Region:        s.Text(FieldRegion),
		Timeline:      s.Text(FieldTimeline),
		Stage:         s.Text(FieldStage),
		Service:       s.Text(FieldService),
		ContactMethod: s.Text(FieldContactMethod),
		Interests:     s.List(FieldInterests),
		Contact:       s.Text(FieldContact),
		Question:      s.Text(FieldQuestion),
		Files:         s.List(FieldFiles),
		Completed:     true,
		Source:        SourceTelegram,
	}
	if other := s.Text(FieldObjectOther); other != "" {
		rec.ObjectType = strings.TrimSpace(rec.ObjectType + ": " + other)
	}
	if s.Has(FieldHasProject) {
		rec.HasProject = BoolPtr(s.Text(FieldHasProject) == AnswerYes)
	}
	if s.Has(FieldGiveaway) {
		rec.GiveawayParticipant = BoolPtr(s.Text(FieldGiveaway) == AnswerYes)
	}
	return rec
}

// IsDetailed reports whether the record carries project details worth a full staff summary.
func (r LeadRecord) IsDetailed() bool {
	if r.DialogKind == DialogRequestForm {
		return true
	}
	return r.DialogKind == DialogWelcomeSurvey && r.HasProject != nil && *r.HasProject
}
