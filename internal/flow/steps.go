// Package flow implements the dialog engine for ADC Navigator.
//
// Each dialog kind is a registered table of steps keyed by state, plus a
// looplab/fsm event table that declares which transitions each state allows.
package flow

import (
	"strings"
	"unicode"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// ChoiceDataPrefix namespaces dialog button data so the router can tell it
// apart from menu buttons.
const ChoiceDataPrefix = "dlg:"

// Choice is one selectable answer of a step.
type Choice struct {
	Key   string
	Label string
	// Value is stored instead of Label when set.
	Value string
	// Event is the FSM event fired on selection; empty means EventNext.
	Event string
}

// Data returns the callback data carried by the choice button.
func (c Choice) Data() string {
	return ChoiceDataPrefix + c.Key
}

// StoredValue returns the value recorded when the choice is selected.
func (c Choice) StoredValue() string {
	if c.Value != "" {
		return c.Value
	}
	return c.Label
}

// FireEvent returns the FSM event fired when the choice is selected.
func (c Choice) FireEvent() string {
	if c.Event != "" {
		return c.Event
	}
	return EventNext
}

// StepSpec describes a single prompt of a dialog.
type StepSpec struct {
	State  models.StateType
	Field  models.FieldName
	Prompt string
	// Choices is the closed choice set, or extra buttons for free text steps.
	Choices []Choice
	// Columns is the number of buttons per keyboard row.
	Columns int
	// FreeText marks steps whose primary input is unrestricted text.
	FreeText bool
	// SkipKey names the choice that records nothing.
	SkipKey string
	// MultiSelect steps toggle choices until DoneKey is pressed.
	MultiSelect bool
	DoneKey     string
	// Attachments steps collect files until any other input arrives.
	Attachments bool
}

// Closed reports whether only the choice set is a valid answer.
func (s StepSpec) Closed() bool {
	return !s.FreeText && !s.Attachments && len(s.Choices) > 0
}

// ChoiceByKey finds a choice by its key.
func (s StepSpec) ChoiceByKey(key string) (Choice, bool) {
	for _, c := range s.Choices {
		if c.Key == key {
			return c, true
		}
	}
	return Choice{}, false
}

// ChoiceByLabel finds a choice whose label matches text, ignoring case,
// surrounding whitespace and leading emoji.
func (s StepSpec) ChoiceByLabel(text string) (Choice, bool) {
	want := normalizeLabel(text)
	if want == "" {
		return Choice{}, false
	}
	for _, c := range s.Choices {
		if normalizeLabel(c.Label) == want {
			return c, true
		}
	}
	return Choice{}, false
}

func normalizeLabel(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToLower(strings.TrimSpace(s))
}

// Transform normalizes a free text answer: whitespace runs collapse to a
// single space, the result is trimmed and capped at models.MaxAnswerLength runes.
func Transform(text string) string {
	out := strings.Join(strings.Fields(text), " ")
	if r := []rune(out); len(r) > models.MaxAnswerLength {
		out = strings.TrimSpace(string(r[:models.MaxAnswerLength]))
	}
	return out
}

// Dialog is the registered definition of one dialog kind.
type Dialog struct {
	Kind  models.DialogKind
	Entry models.StateType
	Steps []StepSpec
	index map[models.StateType]int
}

var registry = make(map[models.DialogKind]*Dialog)

// Register adds a dialog definition to the registry and makes cancel legal
// from each of its steps.
func Register(d *Dialog) {
	d.index = make(map[models.StateType]int, len(d.Steps))
	for i, s := range d.Steps {
		d.index[s.State] = i
	}
	registry[d.Kind] = d
	transitions[d.Kind] = append(transitions[d.Kind], cancelFrom(d))
}

// Get returns the registered dialog for kind.
func Get(kind models.DialogKind) (*Dialog, bool) {
	d, ok := registry[kind]
	return d, ok
}

// EntryState returns the first state of a dialog kind.
func EntryState(kind models.DialogKind) (models.StateType, bool) {
	d, ok := registry[kind]
	if !ok {
		return "", false
	}
	return d.Entry, true
}

// StepAt returns the step shown in state of a dialog kind. It is a pure
// lookup; end states have no step.
func StepAt(kind models.DialogKind, state models.StateType) (StepSpec, bool) {
	d, ok := registry[kind]
	if !ok {
		return StepSpec{}, false
	}
	i, ok := d.index[state]
	if !ok {
		return StepSpec{}, false
	}
	return d.Steps[i], true
}

// Choice keys shared by several steps.
const (
	KeyYes   = "yes"
	KeyNo    = "no"
	KeySkip  = "skip"
	KeyOther = "other"
	KeyDone  = "done"
)

var objectTypeChoices = []Choice{
	{Key: "warehouse", Label: "Склад"},
	{Key: "industry", Label: "Производство"},
	{Key: "mall", Label: "Торговый центр"},
	{Key: "office", Label: "Офис/БЦ"},
	{Key: "medical", Label: "Медицина"},
	{Key: "education", Label: "Образование"},
	{Key: "housing", Label: "Жильё/МКД"},
	{Key: "hotel", Label: "Гостиница"},
}

var timelineChoices = []Choice{
	{Key: "urgent", Label: "Срочно (в течение месяца)"},
	{Key: "3m", Label: "В ближайшие 3 месяца"},
	{Key: "6m", Label: "В течение полугода"},
	{Key: "research", Label: "Пока изучаем рынок"},
}

var regionChoices = []Choice{
	{Key: "msk", Label: "Москва"},
	{Key: "mo", Label: "Московская область"},
	{Key: "spb", Label: "Санкт-Петербург"},
	{Key: "lo", Label: "Ленинградская область"},
}

var skipChoice = Choice{Key: KeySkip, Label: "⏭ Пропустить"}

func with(base []Choice, extra ...Choice) []Choice {
	out := make([]Choice, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func init() {
	Register(&Dialog{
		Kind:  models.DialogWelcomeSurvey,
		Entry: models.StateSurveyHasProject,
		Steps: []StepSpec{
			{
				State:  models.StateSurveyHasProject,
				Field:  models.FieldHasProject,
				Prompt: "👋 Давайте познакомимся!\n\nУ вас есть проект, с которым может помочь *ADC Group*?",
				Choices: []Choice{
					{Key: KeyYes, Label: "✅ Да, есть проект", Value: models.AnswerYes, Event: EventProjectYes},
					{Key: KeyNo, Label: "🔍 Пока нет, интересуюсь", Value: models.AnswerNo, Event: EventProjectNo},
					{Key: KeySkip, Label: "⏭ Пропустить", Event: EventSkip},
				},
				SkipKey: KeySkip,
			},
			{
				State:   models.StateSurveyObjectType,
				Field:   models.FieldObjectType,
				Prompt:  "🏗 Какой тип объекта?",
				Choices: with(objectTypeChoices, Choice{Key: KeyOther, Label: "Другое"}),
				Columns: 2,
			},
			{
				State:    models.StateSurveyArea,
				Field:    models.FieldArea,
				Prompt:   "📐 Укажите ориентировочную площадь (м²) или мощность объекта:",
				FreeText: true,
			},
			{
				State:   models.StateSurveyRegion,
				Field:   models.FieldRegion,
				Prompt:  "📍 В каком регионе находится объект?",
				Choices: with(regionChoices, Choice{Key: KeyOther, Label: "Другой регион", Event: EventRegionOther}),
				Columns: 2,
			},
			{
				State:    models.StateSurveyRegionOther,
				Field:    models.FieldRegion,
				Prompt:   "📍 Напишите город или регион объекта:",
				FreeText: true,
			},
			{
				State:   models.StateSurveyTimeline,
				Field:   models.FieldTimeline,
				Prompt:  "⏰ Когда планируете начать?",
				Choices: timelineChoices,
			},
			{
				State:  models.StateSurveyInterests,
				Field:  models.FieldInterests,
				Prompt: "📚 Какие темы вам интересны?\n\nВыберите одну или несколько и нажмите «Готово».",
				Choices: []Choice{
					{Key: "bim", Label: "BIM"},
					{Key: "design", Label: "Проектирование"},
					{Key: "expertise", Label: "Экспертиза"},
					{Key: "construction", Label: "Строительство"},
					{Key: "survey", Label: "Изыскания"},
					{Key: "news", Label: "Новости отрасли"},
					{Key: KeyDone, Label: "✅ Готово"},
				},
				Columns:     2,
				MultiSelect: true,
				DoneKey:     KeyDone,
			},
			{
				State:  models.StateSurveyGiveaway,
				Field:  models.FieldGiveaway,
				Prompt: "🎁 Среди подписчиков канала мы разыгрываем бесплатные консультации инженеров.\n\nХотите участвовать?",
				Choices: []Choice{
					{Key: KeyYes, Label: "🎁 Да, участвую", Value: models.AnswerYes, Event: EventGiveawayYes},
					{Key: KeyNo, Label: "Нет, спасибо", Value: models.AnswerNo, Event: EventGiveawayNo},
				},
			},
			{
				State:    models.StateSurveyContact,
				Field:    models.FieldContact,
				Prompt:   "📞 Оставьте контакт, чтобы мы могли связаться с победителем:\nтелефон или имя в Telegram",
				Choices:  []Choice{skipChoice},
				FreeText: true,
				SkipKey:  KeySkip,
			},
		},
	})

	Register(&Dialog{
		Kind:  models.DialogRequestForm,
		Entry: models.StateRequestObjectType,
		Steps: []StepSpec{
			{
				State: models.StateRequestObjectType,
				Field: models.FieldObjectType,
				Prompt: "📝 *Заявка на консультацию*\n\n" +
					"Ответьте на несколько вопросов, и наш специалист свяжется с вами.\n" +
					"Отменить заявку можно командой /cancel.\n\n" +
					"*Шаг 1 из 9*\nВыберите тип объекта:",
				Choices: with(objectTypeChoices, Choice{Key: KeyOther, Label: "Другое", Event: EventObjectOther}),
				Columns: 2,
			},
			{
				State:    models.StateRequestObjectOther,
				Field:    models.FieldObjectOther,
				Prompt:   "✏️ Опишите тип объекта:",
				FreeText: true,
			},
			{
				State:  models.StateRequestArea,
				Field:  models.FieldArea,
				Prompt: "*Шаг 2 из 9*\nОриентировочная площадь объекта:",
				Choices: []Choice{
					{Key: "lt1k", Label: "До 1 000 м²"},
					{Key: "1k5k", Label: "1 000 – 5 000 м²"},
					{Key: "5k20k", Label: "5 000 – 20 000 м²"},
					{Key: "gt20k", Label: "Более 20 000 м²"},
				},
				Columns: 2,
			},
			{
				State:   models.StateRequestRegion,
				Field:   models.FieldRegion,
				Prompt:  "*Шаг 3 из 9*\nРегион объекта:\n(можно выбрать или написать свой)",
				Choices: with(regionChoices, Choice{Key: "ru", Label: "Другой регион России"}),
				Columns: 2,
			},
			{
				State:  models.StateRequestStage,
				Field:  models.FieldStage,
				Prompt: "*Шаг 4 из 9*\nНа какой стадии находится проект?",
				Choices: []Choice{
					{Key: "idea", Label: "Идея / концепция"},
					{Key: "site", Label: "Подбор участка"},
					{Key: "design", Label: "Проектирование"},
					{Key: "construction", Label: "Строительство"},
					{Key: "operation", Label: "Эксплуатация"},
				},
			},
			{
				State:  models.StateRequestService,
				Field:  models.FieldService,
				Prompt: "*Шаг 5 из 9*\nЧто требуется?",
				Choices: []Choice{
					{Key: "p_rd", Label: "Проектирование (П+РД)"},
					{Key: "p", Label: "Только проектная (П)"},
					{Key: "rd", Label: "Только рабочая (РД)"},
					{Key: "build", Label: "Строительство"},
					{Key: "complex", Label: "Комплекс услуг"},
				},
			},
			{
				State:   models.StateRequestTimeline,
				Field:   models.FieldTimeline,
				Prompt:  "*Шаг 6 из 9*\nКогда планируете начать?",
				Choices: timelineChoices,
			},
			{
				State:  models.StateRequestContactMethod,
				Field:  models.FieldContactMethod,
				Prompt: "*Шаг 7 из 9*\nКак с вами удобнее связаться?",
				Choices: []Choice{
					{Key: "phone", Label: "📞 Звонок"},
					{Key: "telegram", Label: "💬 Telegram"},
					{Key: "whatsapp", Label: "📱 WhatsApp"},
					{Key: "email", Label: "📧 Email"},
				},
				Columns: 2,
			},
			{
				State: models.StateRequestFiles,
				Field: models.FieldFiles,
				Prompt: "*Шаг 8 из 9*\nПрикрепите файлы, если они есть: ТЗ, планировки, фото участка.\n\n" +
					"Когда закончите, нажмите «Продолжить».",
				Choices:     []Choice{{Key: KeyDone, Label: "➡️ Продолжить"}},
				Attachments: true,
			},
			{
				State:    models.StateRequestContact,
				Field:    models.FieldContact,
				Prompt:   "*Шаг 9 из 9*\n✅ Почти готово!\n\nОставьте контакт для связи:\nтелефон или имя в Telegram",
				FreeText: true,
			},
		},
	})

	Register(&Dialog{
		Kind:  models.DialogTechQuestion,
		Entry: models.StateQuestionText,
		Steps: []StepSpec{
			{
				State: models.StateQuestionText,
				Field: models.FieldQuestion,
				Prompt: "❓ *Вопрос инженеру*\n\nОпишите ваш вопрос одним сообщением, и специалисты ADC Group ответят вам.\n" +
					"Отменить можно командой /cancel.",
				FreeText: true,
			},
			{
				State:    models.StateQuestionContact,
				Field:    models.FieldContact,
				Prompt:   "📞 Как с вами связаться? Телефон, email или имя в Telegram.\n\nЕсли удобно получить ответ здесь, нажмите «Пропустить».",
				Choices:  []Choice{skipChoice},
				FreeText: true,
				SkipKey:  KeySkip,
			},
		},
	})
}
