package decoder

import (
	"fmt"
	"time"

	"github.com/pokegrid/relay/internal/protocol"
)

// RAM is the emulator's 64 KiB Game Boy work-RAM snapshot, as handed to
// Decode by internal/tickproc after each actuated tick.
type RAM = [65536]byte

// Decode is a pure function from RAM to the structured game-state
// document. No network or clock calls; now and turn are caller-supplied so
// the result is fully deterministic given the same inputs.
func Decode(ram *RAM, turn int64, now time.Time, turnHistory []protocol.TurnHistoryEntry) protocol.State {
	phase := detectPhase(ram)

	state := protocol.State{
		Turn:             turn,
		Phase:            phase,
		AvailableActions: protocol.AllActions[:],
		Player:           readPlayer(ram),
		Party:            readParty(ram),
		Inventory:        readInventory(ram),
		Progress:         readProgress(ram),
		TurnHistory:      capHistory(turnHistory),
	}

	switch phase {
	case protocol.PhaseBattle:
		state.Battle = readBattle(ram)
		state.Tip = battleTip(state.Battle)
	case protocol.PhaseMenu:
		_, menu := scanScreen(ram)
		state.MenuState = menu
		state.Tip = "Use up/down to move the cursor, a to confirm, b to back out."
	case protocol.PhaseDialogue:
		text, _ := scanScreen(ram)
		state.ScreenText = text
		state.Tip = "Press a to advance the text."
	default:
		state.Overworld = readOverworld(ram)
		state.Tip = overworldTip(state.Overworld)
	}

	return state
}

// detectPhase applies priority: battle > menu-cursor-on-tilemap > dialogue
// byte > overworld. The menu check runs independently of the dialogue
// bytes below it: a menu box can be on screen with both joyIgnore and
// textBoxID still zero.
func detectPhase(ram *RAM) protocol.Phase {
	if ram[addrBattleType] != 0 {
		return protocol.PhaseBattle
	}

	if _, menu := scanScreen(ram); menu != nil {
		return protocol.PhaseMenu
	}

	if ram[addrJoyIgnore] != 0 || ram[addrTextBoxID] != 0 {
		return protocol.PhaseDialogue
	}

	return protocol.PhaseOverworld
}

func readPlayer(ram *RAM) protocol.Player {
	badges, count := badgesFromBitfield(ram[addrBadges])
	money := bcd3(ram[addrPlayerMoney], ram[addrPlayerMoney+1], ram[addrPlayerMoney+2])

	return protocol.Player{
		Name:       readPlayerName(ram),
		Money:      money,
		BadgeCount: count,
		Badges:     badges,
		MapID:      int(ram[addrCurMap]),
		X:          int(ram[addrXCoord]),
		Y:          int(ram[addrYCoord]),
		Direction:  directionFromByte(ram[addrDirection]),
		PlayTime:   playTime(ram),
	}
}

func readPlayerName(ram *RAM) string {
	var name []byte
	for i := 0; i < 11; i++ {
		b := ram[addrPlayerName+i]
		if b == 0x00 {
			break
		}
		name = append(name, tileToChar(b))
	}
	if len(name) == 0 {
		return "RED"
	}
	return string(name)
}

func playTime(ram *RAM) string {
	h := int(ram[addrPlayTimeHrs])
	m := int(ram[addrPlayTimeMin])
	s := int(ram[addrPlayTimeSec])
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func readProgress(ram *RAM) protocol.Progress {
	owned, seen := readPokedexCounts(ram)
	_, badgeCount := badgesFromBitfield(ram[addrBadges])
	return protocol.Progress{PokedexOwned: owned, PokedexSeen: seen, BadgeCount: badgeCount}
}

// readBattle decodes the active battle. The opponent's displayed HP is
// clamped the same way the player's own mon is.
func readBattle(ram *RAM) *protocol.Battle {
	own := readBattler(ram, addrBattleMonsBase)
	opponent := readBattler(ram, addrEnemyMonsBase)
	if opponent.Pokemon.HP > opponent.Pokemon.MaxHP {
		opponent.Pokemon.HP = opponent.Pokemon.MaxHP
	}

	for i := range own.Pokemon.Moves {
		own.Pokemon.Moves[i].Effectiveness = Effectiveness(typeFromName(own.Pokemon.Moves[i].Type), typesFromNames(opponent.Pokemon.Types))
	}

	return &protocol.Battle{
		IsWild:   ram[addrEnemyMonsBase+monOffSpecies] != 0 && int(ram[addrBattleTurn+1]) == 0,
		Own:      own,
		Opponent: opponent,
		TurnNo:   int(ram[addrBattleTurn]),
	}
}

func typeFromName(name string) PokeType {
	return PokeType(name)
}

func typesFromNames(names []string) []PokeType {
	out := make([]PokeType, len(names))
	for i, n := range names {
		out[i] = PokeType(n)
	}
	return out
}

func readOverworld(ram *RAM) *protocol.Overworld {
	return &protocol.Overworld{
		EncounterRate:     float64(ram[addrEncounterRate]) / 255,
		AvailableHMs:      availableHMs(ram),
		NearbySpriteCount: nearbySpriteCount(ram),
	}
}

// battleTip ranks a super-effective move over a low-HP warning: effectiveness
// determines the fastest way to end the fight, HP only matters once there's
// no good move to press.
func battleTip(b *protocol.Battle) string {
	if b == nil {
		return ""
	}
	best := ""
	bestMult := 0.0
	for _, m := range b.Own.Pokemon.Moves {
		if m.Effectiveness > bestMult {
			bestMult = m.Effectiveness
			best = m.Name
		}
	}
	if best != "" && bestMult > 1 {
		return fmt.Sprintf("%s is super effective against %s.", best, b.Opponent.Pokemon.Species)
	}
	if b.Own.Pokemon.HPPercent < 25 {
		return fmt.Sprintf("%s is low on HP — consider switching or healing.", b.Own.Pokemon.Species)
	}
	return fmt.Sprintf("Fighting a wild %s.", b.Opponent.Pokemon.Species)
}

func overworldTip(ow *protocol.Overworld) string {
	if ow != nil && len(ow.AvailableHMs) > 0 {
		return fmt.Sprintf("%s is available — try using it to clear obstacles.", ow.AvailableHMs[0])
	}
	if ow != nil && ow.EncounterRate > highEncounterRateThreshold {
		return "Wild encounter rate is high here — keep an eye on your party's HP."
	}
	return "Explore — try each of the 8 buttons to see what they do."
}

func capHistory(h []protocol.TurnHistoryEntry) []protocol.TurnHistoryEntry {
	if len(h) <= protocol.MaxTurnHistory {
		return h
	}
	return h[len(h)-protocol.MaxTurnHistory:]
}
