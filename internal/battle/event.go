package battle

// Event is one entry of a battle replay.
type Event struct {
	Round   int            `json:"round"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

const (
	EventStart      = "BattleStart"
	EventAAFire     = "AAFire"
	EventBombard    = "Bombard"
	EventFire       = "Fire"
	EventCasualties = "Casualties"
	EventFallback   = "CasualtyFallback"
	EventRetreat    = "Retreat"
	EventEnd        = "BattleEnd"
)
