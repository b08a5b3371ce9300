// Package models defines dialog session structures for ADC Navigator.
package models

import (
	"slices"
	"time"
)

// FieldValue is one collected answer: a text value, or an ordered list for list fields.
type FieldValue struct {
	Text string   `json:"text,omitempty"`
	List []string `json:"list,omitempty"`
}

// Session is the volatile per-user record of an in-progress dialog.
type Session struct {
	UserID    int64                    `json:"user_id"`
	Identity  UserIdentity             `json:"identity"`
	Kind      DialogKind               `json:"kind"`
	State     StateType                `json:"state"`
	Fields    map[FieldName]FieldValue `json:"fields,omitempty"`
	StartedAt time.Time                `json:"started_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// NewSession creates a session positioned at the given entry state.
func NewSession(identity UserIdentity, kind DialogKind, entry StateType, now time.Time) *Session {
	return &Session{
		UserID:    identity.ID,
		Identity:  identity,
		Kind:      kind,
		State:     entry,
		Fields:    make(map[FieldName]FieldValue),
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share field slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Fields = make(map[FieldName]FieldValue, len(s.Fields))
	for k, v := range s.Fields {
		c.Fields[k] = FieldValue{Text: v.Text, List: slices.Clone(v.List)}
	}
	return &c
}

// Record stores value under field: appended for list fields, overwritten otherwise.
func (s *Session) Record(field FieldName, value string) {
	if s.Fields == nil {
		s.Fields = make(map[FieldName]FieldValue)
	}
	if IsListField(field) {
		v := s.Fields[field]
		v.List = append(v.List, value)
		s.Fields[field] = v
		return
	}
	s.Fields[field] = FieldValue{Text: value}
}

// Toggle adds value to a list field if absent, or removes it if present.
// It returns true when the value is selected after the call.
func (s *Session) Toggle(field FieldName, value string) bool {
	if s.Fields == nil {
		s.Fields = make(map[FieldName]FieldValue)
	}
	v := s.Fields[field]
	if i := slices.Index(v.List, value); i >= 0 {
		v.List = slices.Delete(v.List, i, i+1)
		s.Fields[field] = v
		return false
	}
	v.List = append(v.List, value)
	s.Fields[field] = v
	return true
}

// Text returns the text value of field, or "" if unset.
func (s *Session) Text(field FieldName) string {
	return s.Fields[field].Text
}

// List returns a copy of the list value of field.
func (s *Session) List(field FieldName) []string {
	return slices.Clone(s.Fields[field].List)
}

// Has reports whether field has been answered.
func (s *Session) Has(field FieldName) bool {
	_, ok := s.Fields[field]
	return ok
}
