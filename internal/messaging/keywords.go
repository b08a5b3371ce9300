package messaging

import "strings"

type keywordRule struct {
	name  string
	words []string
	reply string
}

// Timeline is matched before price: "сколько времени" also contains "сколько".
var keywordRules = []keywordRule{
	{
		name:  "greeting",
		words: []string{"привет", "здравствуй", "добрый"},
		reply: "Здравствуйте! 👋\n\nЯ — навигатор канала ADC Group.\nНажмите /start для просмотра меню.",
	},
	{
		name:  "timeline",
		words: []string{"срок", "сколько времени", "как долго"},
		reply: "⏰ Сроки проектирования зависят от площади и сложности объекта.\n\n" +
			"Ориентировочно:\n" +
			"• до 5 000 м² — от 60 дней\n" +
			"• 5 000–20 000 м² — от 90 дней\n" +
			"• более 20 000 м² — от 120 дней\n\n" +
			"📝 Для точного расчёта: /request",
	},
	{
		name:  "price",
		words: []string{"цена", "стоимость", "сколько"},
		reply: "💰 Стоимость зависит от типа и площади объекта.\n\n" +
			"Для расчёта оставьте заявку — наш специалист подготовит коммерческое предложение.\n\n" +
			"📝 /request — оставить заявку",
	},
	{
		name:  "contacts",
		words: []string{"контакт", "телефон", "позвонить"},
		reply: "📞 *Контакты ADC Group:*\n\n" +
			"Телефон: 8-800-350-13-90\n" +
			"Email: info@arxproektstroy.ru\n" +
			"Сайт: miringgroup.com\n\n" +
			"📝 Или оставьте заявку: /request",
	},
}

// MatchKeyword returns the canned reply for text, if any rule matches.
func MatchKeyword(text string) (name, reply string, ok bool) {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				return rule.name, rule.reply, true
			}
		}
	}
	return "", "", false
}
