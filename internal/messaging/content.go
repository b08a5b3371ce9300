package messaging

import (
	"fmt"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// Public links.
const (
	SiteURL      = "https://miringgroup.com"
	PortfolioURL = "https://drive.google.com/file/d/1gj0bPzw36cJMR413GEoRHoGSUjQKD29_/view"
	ProjectsURL  = "https://arxproektstroy.ru/proekty"
	ChannelURL   = "https://t.me/ADC_Project"
)

// MenuPrefix prefixes callback data of menu buttons.
const MenuPrefix = "menu:"

// Menu button data.
const (
	MenuCompany   = MenuPrefix + "company"
	MenuServices  = MenuPrefix + "services"
	MenuObjects   = MenuPrefix + "objects"
	MenuPortfolio = MenuPrefix + "portfolio"
	MenuHome      = MenuPrefix + "home"
	MenuRequest   = MenuPrefix + "request"
	MenuQuestion  = MenuPrefix + "question"
	MenuSurvey    = MenuPrefix + "survey"
	MenuCancel    = MenuPrefix + "cancel"
)

const companyInfo = `🏢 *ADC Group* (ООО «МИРИНГ ГРУП»)

Федеральная инженерно-проектная группа полного цикла.

📊 *Ключевые показатели:*
• 26 лет на рынке
• 21 000+ реализованных проектов
• 80+ специалистов в штате
• 200+ партнёрских организаций
• 18+ регионов России
• BIM-технологии с 2018 года

🏆 *Знаковые заказчики:*
Лукойл, Сбербанк, Газпром, ПИК, X5 Retail, РЖД, Магнит, Правительство Москвы

🌐 Сайт: miringgroup.com
📞 Телефон: 8-800-350-13-90
📧 Email: info@arxproektstroy.ru`

const servicesInfo = `📐 *УСЛУГИ ADC Group*

*1. Проектирование*
• Проектная документация (стадия П)
• Рабочая документация (стадия РД)
• Эскизное проектирование
• BIM-моделирование

*2. Сопровождение*
• Прохождение экспертизы
• Получение разрешения на строительство
• Авторский надзор
• Функции технического заказчика

*3. Инженерные изыскания*
• Геодезические
• Геологические
• Экологические

*4. Строительство*
• СМР по собственным проектам
• Комплексное строительство под ключ

📋 Для расчёта сроков и стоимости оставьте заявку`

const objectTypesInfo = `🏗 *ТИПЫ ОБЪЕКТОВ*

Проектируем коммерческие объекты любого назначения:

*Промышленность и логистика:*
• Склады и логистические центры
• Производственные здания
• Заводы и фабрики

*Торговля и офисы:*
• Торговые центры
• Бизнес-центры
• Магазины и ритейл

*Социальные объекты:*
• Медицинские учреждения
• Образовательные учреждения
• Спортивные объекты

*Жильё и гостиницы:*
• Многоквартирные дома
• Гостиницы и санатории
• Апарт-отели

*Инфраструктура:*
• Наружные сети
• Благоустройство
• Дороги и площадки`

// Links live in buttons: an underscore in a URL breaks legacy Markdown.
const portfolioInfo = `📁 *ПОРТФОЛИО ADC Group*

Более 200 объектов в активном портфолио.

📊 *Статистика:*
• 140+ крупных объектов
• 800+ млн руб. контрактов
• 87% экспертиз с первого раза
• Гарантия 3 года на все работы`

const helpText = `📚 *СПРАВКА*

*Команды:*
/start — главное меню
/request — оставить заявку
/question — задать вопрос инженеру
/cancel — отменить текущую анкету
/help — эта справка

*Разделы меню:*
• О компании — информация об ADC Group
• Услуги — перечень услуг
• Типы объектов — что проектируем
• Портфолио — примеры работ
• Оставить заявку — форма для связи

*Контакты:*
📞 8-800-350-13-90
📧 info@arxproektstroy.ru
🌐 miringgroup.com`

const (
	menuText        = "🏠 *Главное меню*\n\nВыберите интересующий раздел:"
	fallbackText    = "Я могу помочь с информацией о компании и услугах.\n\nНажмите /start для просмотра меню\nили /request чтобы оставить заявку."
	staleButtonText = "Эта анкета уже завершена."
	idleFileText    = "Чтобы передать файлы проекта, оставьте заявку: /request"
	brokenText      = "😔 Что-то пошло не так. Попробуйте ещё раз: /start"
)

func mainMenuChoices() []models.Choice {
	return []models.Choice{
		{Label: "🏢 О компании", Data: MenuCompany},
		{Label: "📐 Услуги", Data: MenuServices},
		{Label: "🏗 Типы объектов", Data: MenuObjects},
		{Label: "📁 Портфолио", Data: MenuPortfolio},
		{Label: "📝 Оставить заявку", Data: MenuRequest},
		{Label: "❓ Вопрос инженеру", Data: MenuQuestion},
		{Label: "📢 Канал ADC Group", URL: ChannelURL},
	}
}

func requestChoices() []models.Choice {
	return []models.Choice{
		{Label: "📝 Оставить заявку", Data: MenuRequest},
		{Label: "◀️ Главное меню", Data: MenuHome},
	}
}

// MenuEmission renders the main menu.
func MenuEmission() models.Emission {
	return models.Emission{Text: menuText, Choices: mainMenuChoices(), Markdown: true}
}

// GreetingEmission renders the returning-user greeting with the main menu.
func GreetingEmission(ident models.UserIdentity) models.Emission {
	return models.Emission{
		Text: fmt.Sprintf("👋 %s, добро пожаловать!\n\n"+
			"Я — навигатор канала *ADC Group*.\n\n"+
			"Помогу узнать о компании, услугах и оставить заявку на консультацию.\n\n"+
			"Выберите интересующий раздел:", greetingName(ident)),
		Choices:  mainMenuChoices(),
		Markdown: true,
	}
}

// IntroEmission precedes the welcome survey for first-time users.
func IntroEmission(ident models.UserIdentity) models.Emission {
	return models.Emission{
		Text: fmt.Sprintf("👋 %s, добро пожаловать!\n\n"+
			"Я — навигатор канала *ADC Group*. Ответьте, пожалуйста, на пару коротких вопросов, "+
			"чтобы мы могли присылать вам полезное.", greetingName(ident)),
		Markdown: true,
	}
}

func greetingName(ident models.UserIdentity) string {
	if ident.FirstName == "" {
		return "Здравствуйте"
	}
	return escapeMarkdown(ident.FirstName)
}

// escapeMarkdown removes characters that open legacy Markdown entities.
func escapeMarkdown(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '*', '_', '`', '[':
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// InfoEmission renders a static info section by menu data.
func InfoEmission(data string) (models.Emission, bool) {
	em := models.Emission{Choices: requestChoices(), Markdown: true}
	switch data {
	case MenuCompany:
		em.Text = companyInfo
		em.Choices = append([]models.Choice{{Label: "🌐 Сайт", URL: SiteURL}}, em.Choices...)
	case MenuServices:
		em.Text = servicesInfo
	case MenuObjects:
		em.Text = objectTypesInfo
	case MenuPortfolio:
		em.Text = portfolioInfo
		em.Choices = append([]models.Choice{
			{Label: "🔗 Посмотреть портфолио", URL: PortfolioURL},
			{Label: "🔗 Проекты на сайте", URL: ProjectsURL},
		}, em.Choices...)
	default:
		return models.Emission{}, false
	}
	return em, true
}

// HelpEmission renders the command reference.
func HelpEmission() models.Emission {
	return models.Emission{Text: helpText, Markdown: true}
}
