package assistant

// FAQEntry is a canned question and answer.
type FAQEntry struct {
	Question string
	Answer   string
}

var faq = []FAQEntry{
	{"Что такое RTO и MTPD?", "RTO - время восстановления процесса, MTPD - максимально допустимый период простоя"},
	{"Какие типы угроз существуют?", "Техногенные, природные, социальные, геополитические, экономические, биолого-социальные"},
	{"Как часто проводится переоценка рисков?", "При наступлении триггеров: изменения в процессах, угрозах или окружении"},
	{"Что делать при пожаре в офисе?", "Активировать план ОНиВД, перевести на удаленную работу, использовать резервные площадки"},
	{"Как рассчитывается воздействие риска?", "По формуле T_R = T_rec_AC + T_rec_Office + T_move × F_strategy + T_rec_process"},
}

// FAQ returns the canned questions in display order.
func FAQ() []FAQEntry {
	out := make([]FAQEntry, len(faq))
	copy(out, faq)
	return out
}

// FAQAt returns the 1-based entry i.
func FAQAt(i int) (FAQEntry, bool) {
	if i < 1 || i > len(faq) {
		return FAQEntry{}, false
	}
	return faq[i-1], true
}
