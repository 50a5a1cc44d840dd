package questiongen

import (
	"math/rand/v2"
	"slices"

	"github.com/abhisek/riskbot/internal/difficulty"
)

type bankEntry struct {
	text        string
	options     []string
	correct     int
	explanation string
	topic       string
}

// bank holds pre-authored questions per level. Level 1 is the universal
// fallback.
var bank = map[int][]bankEntry{
	1: {
		{
			text: "Что означает аббревиатура RTO в контексте управления рисками?",
			options: []string{
				"Время восстановления процесса",
				"Реальное время операций",
				"Результат технической оценки",
				"Режим текущей операции",
			},
			correct:     0,
			explanation: "RTO (Recovery Time Objective) - это целевое время восстановления процесса после реализации угрозы непрерывности.",
			topic:       "Основные понятия",
		},
		{
			text: "Что такое MTPD?",
			options: []string{
				"Минимальный тариф на передачу данных",
				"Максимально допустимый период нарушения деятельности",
				"Метод технической проверки документов",
				"Мониторинг транзакций платежной системы",
			},
			correct:     1,
			explanation: "MTPD (Maximum Tolerable Period of Disruption) - максимальное время простоя процесса, после которого последствия для банка становятся неприемлемыми.",
			topic:       "Основные понятия",
		},
	},
	2: {
		{
			text: "С чего начинается построение системы обеспечения непрерывности деятельности?",
			options: []string{
				"С закупки резервного оборудования",
				"С проведения анализа влияния на бизнес (BIA)",
				"С обучения сотрудников эвакуации",
				"С заключения договора страхования",
			},
			correct:     1,
			explanation: "Анализ влияния на бизнес определяет критичные процессы, их RTO и MTPD, и на его основе выбираются стратегии восстановления.",
			topic:       "Процедуры",
		},
		{
			text: "Как часто рекомендуется тестировать планы обеспечения непрерывности?",
			options: []string{
				"Только после реального инцидента",
				"Один раз при утверждении плана",
				"Не реже одного раза в год и после существенных изменений",
				"Каждые пять лет",
			},
			correct:     2,
			explanation: "Планы устаревают вместе с процессами и инфраструктурой, поэтому их проверяют регулярно, как правило ежегодно, и после значимых изменений.",
			topic:       "Процедуры",
		},
	},
	3: {
		{
			text: "Какой сценарий угрозы непрерывности следует оценивать для процесса, полностью зависящего от одного центра обработки данных?",
			options: []string{
				"Только кражу офисной техники",
				"Недоступность основного ЦОД и переход на резервную площадку",
				"Изменение курса валют",
				"Увольнение руководителя отдела маркетинга",
			},
			correct:     1,
			explanation: "Единственная точка отказа требует сценарного анализа ее недоступности и проверки возможности восстановления на резервной площадке в пределах RTO.",
			topic:       "Сценарный анализ",
		},
		{
			text: "Что показывает оценка остаточного риска непрерывности?",
			options: []string{
				"Риск после применения мер контроля и восстановления",
				"Риск до анализа процессов",
				"Размер штрафов регулятора",
				"Количество инцидентов за прошлый год",
			},
			correct:     0,
			explanation: "Остаточный риск оценивается с учетом действующих мер и показывает, достаточно ли их для соблюдения целевых показателей восстановления.",
			topic:       "Оценка рисков",
		},
	},
	4: {
		{
			text: "Процесс имеет MTPD 8 часов. Какое значение RTO корректно для этого процесса?",
			options: []string{
				"12 часов",
				"8 часов 30 минут",
				"4 часа",
				"24 часа",
			},
			correct:     2,
			explanation: "RTO должно быть меньше MTPD с запасом на обнаружение инцидента и принятие решения, поэтому из вариантов подходит только 4 часа.",
			topic:       "Расчет показателей",
		},
		{
			text: "Резервная копия базы создается каждые 6 часов. Каково максимальное значение фактического RPO?",
			options: []string{
				"1 час",
				"6 часов",
				"12 часов",
				"Ноль, потери данных невозможны",
			},
			correct:     1,
			explanation: "При сбое непосредственно перед очередным копированием теряются данные за весь интервал между копиями, то есть до 6 часов.",
			topic:       "Расчет показателей",
		},
	},
	5: {
		{
			text: "Два критичных процесса конкурируют за одну резервную площадку ограниченной емкости. Какое решение наиболее обосновано?",
			options: []string{
				"Восстанавливать процессы в порядке поступления заявок",
				"Приоритизировать по результатам BIA с учетом MTPD и взаимозависимостей",
				"Отказаться от восстановления обоих процессов",
				"Всегда восстанавливать процесс с большим числом сотрудников",
			},
			correct:     1,
			explanation: "Очередность восстановления определяется критичностью по BIA, допустимым периодом простоя и зависимостями между процессами, а не формальными признаками.",
			topic:       "Принятие решений",
		},
		{
			text: "Какой подход к управлению риском непрерывности при передаче процесса на аутсорсинг является комплексным?",
			options: []string{
				"Полностью переложить риск на поставщика по договору",
				"Проверить только цену услуг",
				"Включить поставщика в BIA, согласовать RTO в договоре и регулярно тестировать его планы",
				"Запретить аутсорсинг критичных процессов без анализа",
			},
			correct:     2,
			explanation: "Ответственность за непрерывность остается у банка, поэтому поставщик встраивается в анализ, договорные показатели и программу тестирования.",
			topic:       "Принятие решений",
		},
	},
}

// Fallback returns a random bank question for level. Unknown levels use the
// level 1 set and are labelled level 1.
func Fallback(level int) *Question {
	entries, ok := bank[level]
	if !ok || len(entries) == 0 {
		level = difficulty.MinLevel
		entries = bank[level]
	}
	e := entries[rand.IntN(len(entries))]
	return &Question{
		Text:        e.text,
		Options:     slices.Clone(e.options),
		Correct:     e.correct,
		Explanation: e.explanation,
		Difficulty:  level,
		Topic:       e.topic,
		Source:      SourceFallback,
	}
}
