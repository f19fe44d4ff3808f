package model

type Gender string

const (
	GenderAny    Gender = "Any"
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// ParseGender maps a client-declared value onto the closed set. Anything
// unrecognised, including the empty string, becomes GenderAny.
func ParseGender(s string) Gender {
	switch Gender(s) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	default:
		return GenderAny
	}
}

type ConnectionState string

const (
	ConnectionStateIdle    ConnectionState = "idle"
	ConnectionStateWaiting ConnectionState = "waiting"
	ConnectionStatePaired  ConnectionState = "paired"
)

type MatchStatus string

const (
	MatchStatusWaiting MatchStatus = "waiting"
	MatchStatusMatched MatchStatus = "matched"
)
