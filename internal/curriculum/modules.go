package curriculum

// modules is the built-in course, one module per difficulty level.
var modules = []Module{
	{
		Level:       1,
		Topic:       "Основы управления рисками непрерывности",
		Description: "Базовые понятия, ключевые показатели и типы угроз",
		Lesson:      "Урок 1: Основы управления рисками непрерывности",
		Theory: `📚 <b>Урок 1: Основы управления рисками непрерывности</b>

🎯 <b>Что вы изучите:</b>
• Понятие риска нарушения непрерывности деятельности
• Основные термины: RTO, MTPD, критически важные процессы
• Типы угроз для банка
• Роль регулятора (ЦБ РФ)

💡 <b>Риск нарушения непрерывности деятельности</b> - это вероятность возникновения угроз, которые могут привести к нарушению способности банка поддерживать операционную устойчивость.

📋 <b>Ключевые термины:</b>
• <b>RTO</b> (Recovery Time Objective) - целевое время восстановления процесса
• <b>MTPD</b> (Maximum Tolerable Period of Disruption) - максимально допустимый период простоя
• <b>Критически важный процесс</b> - процесс, прерывание которого критически влияет на деятельность банка

🚨 <b>6 типов угроз:</b>
1. Техногенные (пожары, аварии)
2. Природные (землетрясения, наводнения)
3. Социальные (забастовки, беспорядки)
4. Геополитические (санкции, конфликты)
5. Экономические (кризисы, дефолты)
6. Биолого-социальные (пандемии, эпидемии)

✅ Теперь проверим ваши знания!`,
		Objectives: []string{
			"Понимание основных терминов",
			"Знание типов угроз",
			"Осознание важности непрерывности",
		},
		Minutes: 15,
	},
	{
		Level:       2,
		Topic:       "Процедуры оценки и реагирования",
		Description: "Методика оценки рисков и планы обеспечения непрерывности",
		Lesson:      "Урок 2: Процедуры оценки и реагирования",
		Theory: `📚 <b>Урок 2: Процедуры оценки и реагирования</b>

🎯 <b>Что вы изучите:</b>
• Методика оценки рисков
• Качественная и количественная оценка
• Процедуры реагирования на инциденты
• Планы обеспечения непрерывности (ОНиВД)

📊 <b>Оценка рисков включает:</b>
• Анализ окружения критически важных процессов
• Оценку влияния недоступности АС, офисов, аутсорсеров
• Расчет времени воздействия риска (T_R)
• Определение рейтинга риска

📈 <b>Формула воздействия риска:</b>
T_R = T_rec_AC + T_rec_Office + T_move × F_strategy + T_rec_process

🚨 <b>План ОНиВД содержит:</b>
• Процедуры перевода на удаленную работу
• Переезд на резервные площадки
• Активация резервных систем
• Уведомление заинтересованных сторон

✅ Переходим к практическим вопросам!`,
		Objectives: []string{
			"Понимание методики оценки",
			"Знание формул расчета",
			"Умение применять процедуры",
		},
		Minutes: 20,
	},
	{
		Level:       3,
		Topic:       "Анализ сценариев и принятие решений",
		Description: "Сценарный анализ, каскадные эффекты и стратегии митигации",
		Lesson:      "Урок 3: Анализ сценариев и принятие решений",
		Theory: `📚 <b>Урок 3: Анализ сценариев и принятие решений</b>

🎯 <b>Что вы изучите:</b>
• Анализ сложных сценариев угроз
• Принятие решений в условиях неопределенности
• Комплексная оценка рисков
• Стратегии митигации

🎭 <b>Сценарный анализ:</b>
• Моделирование различных угроз
• Оценка каскадных эффектов
• Анализ взаимодействия факторов риска
• Планирование комплексного реагирования

🧠 <b>Принятие решений:</b>
• Быстрая оценка ситуации
• Приоритизация действий
• Координация с подразделениями
• Коммуникация с руководством

⚡ <b>Примеры сложных сценариев:</b>
• Пандемия + кибератака
• Природная катастрофа + экономический кризис
• Геополитические санкции + техногенная авария

✅ Проверим навыки принятия решений!`,
		Objectives: []string{
			"Анализ сложных сценариев",
			"Принятие обоснованных решений",
			"Комплексное мышление",
		},
		Minutes: 25,
	},
	{
		Level:       4,
		Topic:       "Расчет показателей восстановления",
		Description: "Количественная оценка времени воздействия и целевых показателей",
		Lesson:      "Урок 4: Расчет показателей восстановления",
		Theory: `📚 <b>Урок 4: Расчет показателей восстановления</b>

🎯 <b>Что вы изучите:</b>
• Соотношение RTO, RPO и MTPD
• Расчет времени воздействия риска T_R
• Учет зависимостей от АС, офисов и поставщиков
• Проверку достаточности стратегии восстановления

📐 <b>Базовые соотношения:</b>
• RTO должно быть меньше MTPD с запасом на обнаружение и эскалацию
• RPO не превышает интервал между резервными копиями
• Время воздействия T_R сравнивается с MTPD процесса

🧮 <b>Пример:</b>
АС восстанавливается за 2 часа, переезд на резервную площадку занимает 1 час при коэффициенте стратегии 1,5, восстановление процесса 0,5 часа.
T_R = 2 + 1 × 1,5 + 0,5 = 4 часа. При MTPD 8 часов стратегия достаточна.

⚠️ <b>Типичные ошибки:</b>
• Игнорирование времени принятия решения
• Расчет без учета самой медленной зависимости
• Совпадение RTO и MTPD без запаса

✅ Потренируемся в расчетах!`,
		Objectives: []string{
			"Расчет времени воздействия",
			"Сопоставление RTO и MTPD",
			"Оценка достаточности стратегии",
		},
		Minutes: 30,
	},
	{
		Level:       5,
		Topic:       "Экспертное управление непрерывностью",
		Description: "Приоритизация, аутсорсинг и управленческие решения в кризисе",
		Lesson:      "Урок 5: Экспертное управление непрерывностью",
		Theory: `📚 <b>Урок 5: Экспертное управление непрерывностью</b>

🎯 <b>Что вы изучите:</b>
• Приоритизацию восстановления при ограниченных ресурсах
• Управление непрерывностью при аутсорсинге
• Антикризисное управление и эскалацию
• Оценку зрелости системы непрерывности

🏛 <b>Принятие решений в кризисе:</b>
• Очередность восстановления определяется BIA и взаимозависимостями
• Решения фиксируются кризисным комитетом
• Коммуникация с регулятором и клиентами ведется по утвержденному плану

🤝 <b>Аутсорсинг:</b>
• Ответственность за непрерывность остается у банка
• Показатели восстановления закрепляются в договоре
• Планы поставщика регулярно тестируются совместно

📈 <b>Зрелость системы:</b>
• Регулярное тестирование и учет уроков инцидентов
• Интеграция с управлением операционным риском
• Метрики выполнения RTO по результатам учений

✅ Проверим экспертные решения!`,
		Objectives: []string{
			"Приоритизация восстановления",
			"Управление рисками поставщиков",
			"Антикризисные решения",
		},
		Minutes: 30,
	},
}
