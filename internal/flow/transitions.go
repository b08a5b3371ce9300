package flow

import (
	"context"
	"log/slog"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/looplab/fsm"
)

// FSM events.
const (
	EventNext        = "next"
	EventCancel      = "cancel"
	EventSkip        = "skip"
	EventProjectYes  = "project_yes"
	EventProjectNo   = "project_no"
	EventRegionOther = "region_other"
	EventGiveawayYes = "giveaway_yes"
	EventGiveawayNo  = "giveaway_no"
	EventObjectOther = "object_other"
)

func states(ss ...models.StateType) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func edge(event string, src models.StateType, dst models.StateType) fsm.EventDesc {
	return fsm.EventDesc{Name: event, Src: states(src), Dst: string(dst)}
}

// cancelFrom makes cancel legal from every step state of a dialog.
func cancelFrom(d *Dialog) fsm.EventDesc {
	src := make([]models.StateType, 0, len(d.Steps))
	for _, s := range d.Steps {
		src = append(src, s.State)
	}
	return fsm.EventDesc{Name: EventCancel, Src: states(src...), Dst: string(models.StateCancelled)}
}

var transitions = map[models.DialogKind][]fsm.EventDesc{
	models.DialogWelcomeSurvey: {
		edge(EventProjectYes, models.StateSurveyHasProject, models.StateSurveyObjectType),
		edge(EventProjectNo, models.StateSurveyHasProject, models.StateSurveyInterests),
		edge(EventSkip, models.StateSurveyHasProject, models.StateCancelled),

		edge(EventNext, models.StateSurveyObjectType, models.StateSurveyArea),
		edge(EventNext, models.StateSurveyArea, models.StateSurveyRegion),
		edge(EventNext, models.StateSurveyRegion, models.StateSurveyTimeline),
		edge(EventRegionOther, models.StateSurveyRegion, models.StateSurveyRegionOther),
		edge(EventNext, models.StateSurveyRegionOther, models.StateSurveyTimeline),
		edge(EventNext, models.StateSurveyTimeline, models.StateCompleted),

		edge(EventNext, models.StateSurveyInterests, models.StateSurveyGiveaway),
		edge(EventGiveawayYes, models.StateSurveyGiveaway, models.StateSurveyContact),
		edge(EventGiveawayNo, models.StateSurveyGiveaway, models.StateCompleted),
		edge(EventNext, models.StateSurveyContact, models.StateCompleted),
	},
	models.DialogRequestForm: {
		edge(EventNext, models.StateRequestObjectType, models.StateRequestArea),
		edge(EventObjectOther, models.StateRequestObjectType, models.StateRequestObjectOther),
		edge(EventNext, models.StateRequestObjectOther, models.StateRequestArea),
		edge(EventNext, models.StateRequestArea, models.StateRequestRegion),
		edge(EventNext, models.StateRequestRegion, models.StateRequestStage),
		edge(EventNext, models.StateRequestStage, models.StateRequestService),
		edge(EventNext, models.StateRequestService, models.StateRequestTimeline),
		edge(EventNext, models.StateRequestTimeline, models.StateRequestContactMethod),
		edge(EventNext, models.StateRequestContactMethod, models.StateRequestFiles),
		edge(EventNext, models.StateRequestFiles, models.StateRequestContact),
		edge(EventNext, models.StateRequestContact, models.StateCompleted),
	},
	models.DialogTechQuestion: {
		edge(EventNext, models.StateQuestionText, models.StateQuestionContact),
		edge(EventNext, models.StateQuestionContact, models.StateCompleted),
	},
}

// Events returns the transition table of a dialog kind.
func Events(kind models.DialogKind) []fsm.EventDesc {
	return transitions[kind]
}

// newMachine builds a state machine for kind positioned at state.
func newMachine(kind models.DialogKind, state models.StateType, userID int64) *fsm.FSM {
	return fsm.NewFSM(string(state), transitions[kind], fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			slog.Debug("Engine transition", "userID", userID, "kind", kind, "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	})
}

// CanFire reports whether event is legal for kind in state.
func CanFire(kind models.DialogKind, state models.StateType, event string) bool {
	return newMachine(kind, state, 0).Can(event)
}
