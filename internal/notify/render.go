package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/google/uuid"
)

// moscow is the staff time zone. A fixed offset avoids depending on tzdata.
var moscow = time.FixedZone("MSK", 3*60*60)

const dateLayout = "02.01.2006 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(moscow).Format(dateLayout)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "да"
	default:
		return "нет"
	}
}

func usernameLine(username string) string {
	if username == "" {
		return "нет username"
	}
	return "@" + username
}

func identityOf(rec models.LeadRecord) models.UserIdentity {
	first, last, _ := strings.Cut(rec.FullName, " ")
	return models.UserIdentity{ID: rec.UserID, Username: rec.Username, FirstName: first, LastName: last}
}

func writeHeader(b *strings.Builder, title string, ident models.UserIdentity, at time.Time) {
	fmt.Fprintf(b, "%s\n\n", title)
	fmt.Fprintf(b, "👤 Пользователь: %s\n", ident.DisplayName())
	fmt.Fprintf(b, "🆔 ID: %d\n", ident.ID)
	fmt.Fprintf(b, "📅 Дата: %s\n", formatTime(at))
}

// RenderLead builds the manager notification for a completed dialog. Request
// forms and surveys with a project get the full summary; the rest a short one.
func RenderLead(rec models.LeadRecord) models.NotificationMessage {
	ident := identityOf(rec)
	var b strings.Builder
	var subject string

	switch {
	case rec.DialogKind == models.DialogRequestForm:
		subject = "Новая заявка: " + ident.DisplayName()
		writeHeader(&b, "🔔 НОВАЯ ЗАЯВКА С КАНАЛА", ident, rec.CompletedAt)
		b.WriteString("\n")
		fmt.Fprintf(&b, "🏗 Тип объекта: %s\n", orDash(rec.ObjectType))
		fmt.Fprintf(&b, "📐 Площадь: %s\n", orDash(rec.Area))
		fmt.Fprintf(&b, "📍 Регион: %s\n", orDash(rec.Region))
		fmt.Fprintf(&b, "📊 Стадия: %s\n", orDash(rec.Stage))
		fmt.Fprintf(&b, "🔧 Услуга: %s\n", orDash(rec.Service))
		fmt.Fprintf(&b, "⏰ Сроки: %s\n", orDash(rec.Timeline))
		fmt.Fprintf(&b, "💬 Способ связи: %s\n", orDash(rec.ContactMethod))
		fmt.Fprintf(&b, "📎 Файлы: %d\n", len(rec.Files))
		fmt.Fprintf(&b, "📞 Контакт: %s\n", orDash(rec.Contact))
	case rec.IsDetailed():
		subject = "Опрос: есть проект, " + ident.DisplayName()
		writeHeader(&b, "📋 ОПРОС: ЕСТЬ ПРОЕКТ", ident, rec.CompletedAt)
		b.WriteString("\n")
		fmt.Fprintf(&b, "🏗 Тип объекта: %s\n", orDash(rec.ObjectType))
		fmt.Fprintf(&b, "📐 Площадь: %s\n", orDash(rec.Area))
		fmt.Fprintf(&b, "📍 Регион: %s\n", orDash(rec.Region))
		fmt.Fprintf(&b, "⏰ Сроки: %s\n", orDash(rec.Timeline))
	case rec.DialogKind == models.DialogTechQuestion:
		subject = "Вопрос инженеру: " + ident.DisplayName()
		writeHeader(&b, "❓ ВОПРОС ИНЖЕНЕРУ", ident, rec.CompletedAt)
		fmt.Fprintf(&b, "\n%s\n\n", orDash(rec.Question))
		fmt.Fprintf(&b, "📞 Контакт: %s\n", orDash(rec.Contact))
	default:
		subject = "Опрос: " + ident.DisplayName()
		writeHeader(&b, "📋 ОПРОС ПОДПИСЧИКА", ident, rec.CompletedAt)
		b.WriteString("\n")
		interests := "-"
		if len(rec.Interests) > 0 {
			interests = strings.Join(rec.Interests, ", ")
		}
		fmt.Fprintf(&b, "📚 Интересы: %s\n", interests)
		fmt.Fprintf(&b, "🎁 Розыгрыш: %s\n", yesNo(rec.GiveawayParticipant))
		if rec.Contact != "" {
			fmt.Fprintf(&b, "📞 Контакт: %s\n", rec.Contact)
		}
	}
	fmt.Fprintf(&b, "\n%s", usernameLine(rec.Username))

	msg := models.NotificationMessage{
		ID:      uuid.NewString(),
		Class:   models.NotifyStaffManager,
		Subject: subject,
		Body:    b.String(),
	}
	if rec.DialogKind == models.DialogRequestForm {
		msg.Attachments = append([]string(nil), rec.Files...)
	}
	return msg
}

// RenderUnanswered builds the admin alert for a question nobody answered,
// followed by the most recent entries of the unanswered log.
func RenderUnanswered(ident models.UserIdentity, text string, at time.Time, recent []models.UnansweredQuestion) models.NotificationMessage {
	var b strings.Builder
	writeHeader(&b, "❔ ВОПРОС БЕЗ ОТВЕТА", ident, at)
	fmt.Fprintf(&b, "\n%s\n\n%s", text, usernameLine(ident.Username))

	var earlier []models.UnansweredQuestion
	for _, q := range recent {
		if q.UserID == ident.ID && q.Text == text {
			continue
		}
		earlier = append(earlier, q)
	}
	if len(earlier) > 0 {
		b.WriteString("\n\n🗂 Последние вопросы:\n")
		for _, q := range earlier {
			fmt.Fprintf(&b, "• %s (%s): %s\n", q.Identity.DisplayName(), formatTime(q.AskedAt), shorten(q.Text, 120))
		}
	}
	return models.NotificationMessage{
		ID:      uuid.NewString(),
		Class:   models.NotifyStaffAdmin,
		Subject: "Вопрос без ответа от " + ident.DisplayName() + " (" + strconv.FormatInt(ident.ID, 10) + ")",
		Body:    strings.TrimRight(b.String(), "\n"),
	}
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
