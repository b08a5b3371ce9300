// Package models defines dialog type definitions to avoid circular imports.
package models

// DialogKind identifies one of the multi-step dialogs a user can be guided through.
type DialogKind string

// StateType represents a specific named state within a dialog.
type StateType string

// FieldName is the key under which a collected answer is stored in a Session.
type FieldName string

// Dialog kind constants.
const (
	DialogWelcomeSurvey DialogKind = "welcome_survey"
	DialogRequestForm   DialogKind = "request_form"
	DialogTechQuestion  DialogKind = "tech_question"
)

// IsValidDialogKind checks if the given dialog kind is supported.
func IsValidDialogKind(k DialogKind) bool {
	switch k {
	case DialogWelcomeSurvey, DialogRequestForm, DialogTechQuestion:
		return true
	default:
		return false
	}
}

// Shared end states. Every dialog finishes in exactly one of them.
const (
	StateCompleted StateType = "completed"
	StateCancelled StateType = "cancelled"
)

// Welcome survey states.
const (
	StateSurveyHasProject  StateType = "survey_has_project"
	StateSurveyObjectType  StateType = "survey_object_type"
	StateSurveyArea        StateType = "survey_area"
	StateSurveyRegion      StateType = "survey_region"
	StateSurveyRegionOther StateType = "survey_region_other"
	StateSurveyTimeline    StateType = "survey_timeline"
	StateSurveyInterests   StateType = "survey_interests"
	StateSurveyGiveaway    StateType = "survey_giveaway"
	StateSurveyContact     StateType = "survey_contact"
)

// Request form states.
const (
	StateRequestObjectType    StateType = "request_object_type"
	StateRequestObjectOther   StateType = "request_object_other"
	StateRequestArea          StateType = "request_area"
	StateRequestRegion        StateType = "request_region"
	StateRequestStage         StateType = "request_stage"
	StateRequestService       StateType = "request_service"
	StateRequestTimeline      StateType = "request_timeline"
	StateRequestContactMethod StateType = "request_contact_method"
	StateRequestFiles         StateType = "request_files"
	StateRequestContact       StateType = "request_contact"
)

// Tech question states.
const (
	StateQuestionText    StateType = "question_text"
	StateQuestionContact StateType = "question_contact"
)

// IsEndState reports whether s terminates a dialog.
func IsEndState(s StateType) bool {
	return s == StateCompleted || s == StateCancelled
}

// Field name constants.
const (
	FieldHasProject    FieldName = "has_project"
	FieldObjectType    FieldName = "object_type"
	FieldObjectOther   FieldName = "object_type_other"
	FieldArea          FieldName = "area"
	FieldRegion        FieldName = "region"
	FieldTimeline      FieldName = "timeline"
	FieldStage         FieldName = "stage"
	FieldService       FieldName = "service"
	FieldContactMethod FieldName = "contact_method"
	FieldInterests     FieldName = "interests"
	FieldGiveaway      FieldName = "giveaway"
	FieldContact       FieldName = "contact"
	FieldQuestion      FieldName = "question"
	FieldFiles         FieldName = "files"
)

// IsListField reports whether values for f accumulate into an ordered list
// rather than overwriting a single text value.
func IsListField(f FieldName) bool {
	return f == FieldInterests || f == FieldFiles
}
