package model

import "time"

const (
	DefaultDisplayName = "Anonymous"
	DefaultAvatar      = "😊"
)

type Filters struct {
	MyGender   Gender `json:"myGender"`
	LookingFor Gender `json:"lookingFor"`
}

// Accepts reports whether a partner with filters other satisfies f.LookingFor.
func (f Filters) Accepts(other Filters) bool {
	return f.LookingFor == GenderAny || f.LookingFor == other.MyGender
}

// Compatible is the symmetric check used for pairing: both sides must
// accept each other.
func (f Filters) Compatible(other Filters) bool {
	return f.Accepts(other) && other.Accepts(f)
}

type Profile struct {
	DisplayName string  `json:"displayName"`
	Avatar      string  `json:"avatar"`
	Bio         string  `json:"bio"`
	IsGuest     bool    `json:"isGuest"`
	WeMetID     *string `json:"weMetId,omitempty"`
}

type Connection struct {
	ID          string    `json:"id"`
	Profile     Profile   `json:"profile"`
	Filters     Filters   `json:"filters"`
	PartnerID   string    `json:"partnerId,omitempty"`
	CoinBalance int64     `json:"coinBalance"`
	ConnectedAt time.Time `json:"connectedAt"`
}

func (c *Connection) Paired() bool {
	return c.PartnerID != ""
}

type WaitingEntry struct {
	ConnectionID string    `json:"connectionId"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
	Filters      Filters   `json:"filters"`
}

func (e WaitingEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.EnqueuedAt)
}

type MatchResult struct {
	Status    MatchStatus
	PartnerID string
	Initiator bool
}

func (r MatchResult) Matched() bool {
	return r.Status == MatchStatusMatched
}
