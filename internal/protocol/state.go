package protocol

// Phase is the coarse game mode derived from emulator RAM by the decoder
// (internal/decoder), with detection priority battle > menu > dialogue >
// overworld.
type Phase string

const (
	PhaseOverworld Phase = "overworld"
	PhaseBattle    Phase = "battle"
	PhaseMenu      Phase = "menu"
	PhaseDialogue  Phase = "dialogue"
)

// Condition is a Pokémon's non-volatile status ailment, decoded from the
// status byte's bit layout.
type Condition string

const (
	ConditionNone      Condition = ""
	ConditionSleep     Condition = "sleep"
	ConditionFreeze    Condition = "freeze"
	ConditionBurn      Condition = "burn"
	ConditionParalysis Condition = "paralysis"
	ConditionPoison    Condition = "poison"
)

// StatModifiers carries the six battle stat stages in their user-facing
// range [-6, +6] (raw RAM value minus 7; invariants).
type StatModifiers struct {
	Attack         int `json:"attack" validate:"min=-6,max=6"`
	Defense        int `json:"defense" validate:"min=-6,max=6"`
	Speed          int `json:"speed" validate:"min=-6,max=6"`
	SpecialAttack  int `json:"specialAttack" validate:"min=-6,max=6"`
	SpecialDefense int `json:"specialDefense" validate:"min=-6,max=6"`
	Accuracy       int `json:"accuracy" validate:"min=-6,max=6"`
	Evasion        int `json:"evasion" validate:"min=-6,max=6"`
}

// Move is one learned or opponent-visible move slot.
type Move struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Power         int    `json:"power"`
	Accuracy      int    `json:"accuracy"`
	PP            int    `json:"pp"`
	MaxPP         int    `json:"maxPp"`
	IsPhysical    bool   `json:"isPhysical"`
	Effectiveness float64 `json:"effectiveness,omitempty"`
}

// Pokemon is one party or battler slot. HP/MaxHP/Level never fall to 0 even
// on uninitialised RAM.
type Pokemon struct {
	Species    string        `json:"species" validate:"required"`
	Nickname   string        `json:"nickname,omitempty"`
	Level      int           `json:"level" validate:"min=1,max=100"`
	HP         int           `json:"hp" validate:"min=0"`
	MaxHP      int           `json:"maxHp" validate:"min=1"`
	HPPercent  float64       `json:"hpPercent"`
	Types      []string      `json:"types" validate:"min=1,max=2"`
	Moves      []Move        `json:"moves" validate:"max=4"`
	Condition  Condition     `json:"condition"`
	Modifiers  StatModifiers `json:"modifiers,omitempty"`
}

// Player is the human-facing trainer summary (name, money, badges, position).
type Player struct {
	Name       string   `json:"name"`
	Money      int      `json:"money"`
	BadgeCount int      `json:"badgeCount"`
	Badges     []string `json:"badges"`
	MapID      int      `json:"mapId"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Direction  string   `json:"direction"`
	PlayTime   string   `json:"playTime"`
}

// InventoryItem is one (id, qty) slot from the bag, terminated in RAM by 0xFF.
type InventoryItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// Battler is one side of an active battle (own active Pokémon, or opponent).
type Battler struct {
	Pokemon Pokemon `json:"pokemon"`
}

// Battle is non-nil iff Phase == PhaseBattle.
type Battle struct {
	IsWild   bool    `json:"isWild"`
	Own      Battler `json:"own"`
	Opponent Battler `json:"opponent"`
	TurnNo   int     `json:"turnNo"`
}

// Overworld is non-nil only when Phase == PhaseOverworld.
type Overworld struct {
	EncounterRate    float64  `json:"encounterRate"`
	AvailableHMs     []string `json:"availableHms"`
	NearbySpriteCount int     `json:"nearbySpriteCount"`
}

// MenuState describes an interactive (cursor-bearing) menu box found on
// the tilemap; populated only when an interior row contains the cursor
// character.
type MenuState struct {
	Rows       []string `json:"rows"`
	CursorRow  int      `json:"cursorRow"`
	CursorCol  int      `json:"cursorCol"`
}

// Progress tracks Pokédex completion and badge count; always populated.
type Progress struct {
	PokedexOwned int `json:"pokedexOwned"`
	PokedexSeen  int `json:"pokedexSeen"`
	BadgeCount   int `json:"badgeCount"`
}

// TurnHistoryEntry records one applied action; state.turnHistory is capped
// at 20 entries.
type TurnHistoryEntry struct {
	Turn   int64  `json:"turn"`
	Action Action `json:"action"`
	Phase  Phase  `json:"phase"`
}

const MaxTurnHistory = 20

// State is the full schema-validated game-state document.
// battle is non-nil iff phase == battle; overworld is nil while phase ==
// battle. The yourScore/yourRank/totalAgents/streak surfaces are
// deliberately stubbed per the open question: nonnegative
// counters with no underlying accounting.
type State struct {
	Turn              int64             `json:"turn"`
	Phase             Phase             `json:"phase" validate:"required,oneof=overworld battle menu dialogue"`
	SecondsRemaining  int               `json:"secondsRemaining" validate:"min=0"`
	AvailableActions  []Action          `json:"availableActions" validate:"len=8"`
	Player            Player            `json:"player"`
	Party             []Pokemon         `json:"party" validate:"max=6,dive"`
	Inventory         []InventoryItem   `json:"inventory"`
	Battle            *Battle           `json:"battle"`
	Overworld         *Overworld        `json:"overworld"`
	ScreenText        *string           `json:"screenText"`
	MenuState         *MenuState        `json:"menuState"`
	Progress          Progress          `json:"progress"`
	YourScore         int               `json:"yourScore" validate:"min=0"`
	YourRank          int               `json:"yourRank" validate:"min=0"`
	TotalAgents       int               `json:"totalAgents" validate:"min=0"`
	Streak            int               `json:"streak" validate:"min=0"`
	Tip               string            `json:"tip"`
	TurnHistory       []TurnHistoryEntry `json:"turnHistory" validate:"max=20"`
}
