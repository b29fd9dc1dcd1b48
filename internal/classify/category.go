// Package classify defines the briefing categories and a keyword-similarity
// cache that reuses earlier classification results for similar titles.
package classify

// Category identifies one briefing section.
type Category string

const (
	AI                  Category = "ai"
	Robotics            Category = "robotics"
	EmbodiedAI          Category = "embodied_ai"
	Semiconductor       Category = "semiconductor"
	Auto                Category = "auto"
	Health              Category = "health"
	Economy             Category = "economy"
	Business            Category = "business"
	Politics            Category = "politics"
	Investment          Category = "investment"
	ConsumerElectronics Category = "consumer_electronics"
	KeyPeople           Category = "key_people"
)

// DefaultCategory is assigned when classification fails to produce a valid label.
const DefaultCategory = Business

type categoryInfo struct {
	displayName string
	icon        string
}

var categoryInfos = map[Category]categoryInfo{
	AI:                  {"AI类", "🤖"},
	Robotics:            {"机器人类", "🦾"},
	EmbodiedAI:          {"具身智能类", "👓"},
	Semiconductor:       {"半导体行业类", "💾"},
	Auto:                {"汽车类", "🚗"},
	Health:              {"健康医疗类", "🏥"},
	Economy:             {"经济政策类", "📊"},
	Business:            {"商业科技类", "💼"},
	Politics:            {"政治政策类", "🏛️"},
	Investment:          {"投资财经类", "📈"},
	ConsumerElectronics: {"消费电子类", "📱"},
	KeyPeople:           {"关键人物发言", "🎤"},
}

// allCategories fixes the section order used throughout the briefing.
var allCategories = []Category{
	AI,
	Robotics,
	EmbodiedAI,
	Semiconductor,
	Auto,
	Health,
	Economy,
	Business,
	Politics,
	Investment,
	ConsumerElectronics,
	KeyPeople,
}

// AllCategories returns every category in briefing section order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory validates a category label, typically one returned by an LLM.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := categoryInfos[c]
	return c, ok
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryInfos[c]
	return ok
}

// DisplayName returns the Chinese section heading for the category.
func (c Category) DisplayName() string {
	return categoryInfos[c].displayName
}

// Icon returns the emoji used for the category in rendered briefings.
func (c Category) Icon() string {
	return categoryInfos[c].icon
}
