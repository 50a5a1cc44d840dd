package achievements

// ID identifies an achievement.
type ID string

const (
	FirstLesson    ID = "first_lesson"
	FiveLessons    ID = "five_lessons"
	TenLessons     ID = "ten_lessons"
	AccuracyMaster ID = "accuracy_master"
	OneHour        ID = "one_hour"
	AdvancedLevel  ID = "advanced_level"
	MasterLevel    ID = "master_level"
)

// Rarity is the tier shown next to an achievement.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// DisplayName returns the Russian label for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityCommon:
		return "Обычное"
	case RarityRare:
		return "Редкое"
	case RarityEpic:
		return "Эпическое"
	case RarityLegendary:
		return "Легендарное"
	default:
		return string(r)
	}
}

// Achievement is a derived badge. Nothing is stored; achievements follow
// from the progress summary.
type Achievement struct {
	ID          ID
	Title       string
	Description string
	Icon        string
	Rarity      Rarity
}

// String renders the achievement as one list line.
func (a Achievement) String() string {
	return a.Icon + " <b>" + a.Title + "</b> - " + a.Description
}
