package goal

// Type is the goal-type tag a classifier resolves free text to.
type Type string

// Known goal types. Custom covers any text no keyword group matches.
const (
	TypeMovieTime    Type = "movie_time"
	TypeGoodnight    Type = "goodnight"
	TypeLeavingHome  Type = "leaving_home"
	TypeWakeUp       Type = "wake_up"
	TypeArrivingHome Type = "arriving_home"
	TypeRelax        Type = "relax"
	TypeCustom       Type = "custom"
)

// AllTypes returns every goal type, custom last.
func AllTypes() []Type {
	return []Type{
		TypeMovieTime,
		TypeGoodnight,
		TypeLeavingHome,
		TypeWakeUp,
		TypeArrivingHome,
		TypeRelax,
		TypeCustom,
	}
}

// IsValid reports whether t is a known goal type.
func (t Type) IsValid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Goal is the raw request text and its resolved type.
type Goal struct {
	Text string `json:"text"`
	Type Type   `json:"goal_type"`
}
