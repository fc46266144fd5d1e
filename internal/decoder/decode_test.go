package decoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokegrid/relay/internal/protocol"
)

func TestDetectPhaseOverworldByDefault(t *testing.T) {
	var ram RAM
	assert.Equal(t, protocol.PhaseOverworld, detectPhase(&ram))
}

func TestDetectPhaseBattleTakesPriority(t *testing.T) {
	var ram RAM
	ram[addrBattleType] = 1
	ram[addrJoyIgnore] = 1
	assert.Equal(t, protocol.PhaseBattle, detectPhase(&ram))
}

func TestDetectPhaseDialogueWithNoBox(t *testing.T) {
	var ram RAM
	ram[addrTextBoxID] = 1
	assert.Equal(t, protocol.PhaseDialogue, detectPhase(&ram))
}

func TestDetectPhaseMenuWhenBoxHasCursor(t *testing.T) {
	var ram RAM
	ram[addrTextBoxID] = 1
	drawBox(&ram, 2, 2, 5, 8)
	setTile(&ram, 3, 3, tileCursor)

	assert.Equal(t, protocol.PhaseMenu, detectPhase(&ram))
}

func TestDetectPhaseMenuTakesPriorityOverDialogueBytesEvenWhenZero(t *testing.T) {
	var ram RAM
	// joyIgnore and textBoxID are both left at zero: the menu check must
	// not be gated behind them.
	drawBox(&ram, 2, 2, 5, 8)
	setTile(&ram, 3, 3, tileCursor)

	assert.Equal(t, protocol.PhaseMenu, detectPhase(&ram))
}

func TestDecodeOverworldPhase(t *testing.T) {
	var ram RAM
	ram[addrPlayerName] = 0 // falls back to RED
	ram[addrXCoord] = 5
	ram[addrYCoord] = 7

	now := time.UnixMilli(0)
	state := Decode(&ram, 3, now, nil)

	assert.Equal(t, protocol.PhaseOverworld, state.Phase)
	assert.Equal(t, int64(3), state.Turn)
	assert.Equal(t, "RED", state.Player.Name)
	assert.Equal(t, 5, state.Player.X)
	assert.Equal(t, 7, state.Player.Y)
	require.NotNil(t, state.Overworld)
	assert.NotEmpty(t, state.Tip)
	assert.Equal(t, protocol.AllActions[:], state.AvailableActions)
}

func TestDecodeBattlePhasePopulatesBattleAndTip(t *testing.T) {
	var ram RAM
	ram[addrBattleType] = 1
	ram[addrEnemyMonsBase+monOffSpecies] = 4 // Charmander
	ram[addrEnemyMonsBase+monOffType1] = 8 // Fire
	ram[addrEnemyMonsBase+monOffType2] = 0xFF	ram[addrEnemyMonsBase+monOffHP+1] = 20
	ram[addrEnemyMonsBase+monOffMaxHP+1] = 20
	ram[addrBattleMonsBase+monOffSpecies] = 7 // Squirtle
	ram[addrBattleMonsBase+monOffHP+1] = 20
	ram[addrBattleMonsBase+monOffMaxHP+1] = 20
	ram[addrBattleMonsBase+monOffMoves] = 55 // Water Gun
	ram[addrBattleMonsBase+monOffPP] = 10

	state := Decode(&ram, 1, time.UnixMilli(0), nil)
	require.NotNil(t, state.Battle)
	assert.Equal(t, "Squirtle", state.Battle.Own.Pokemon.Species)
	assert.Equal(t, "Charmander", state.Battle.Opponent.Pokemon.Species)
	assert.Contains(t, state.Tip, "super effective")
}

func TestDecodeCapsTurnHistory(t *testing.T) {
	var ram RAM
	history := make([]protocol.TurnHistoryEntry, protocol.MaxTurnHistory+5)
	for i := range history {
		history[i] = protocol.TurnHistoryEntry{Turn: int64(i)}
	}

	state := Decode(&ram, 1, time.UnixMilli(0), history)
	assert.Len(t, state.TurnHistory, protocol.MaxTurnHistory)
	assert.Equal(t, history[len(history)-1].Turn, state.TurnHistory[len(state.TurnHistory)-1].Turn)
}

func TestOverworldTipAnnouncesFirstAvailableHM(t *testing.T) {
	tip := overworldTip(&protocol.Overworld{AvailableHMs: []string{"Cut", "Surf"}})
	assert.Contains(t, tip, "Cut")
}

func TestOverworldTipWarnsOnHighEncounterRateWhenNoHM(t *testing.T) {
	tip := overworldTip(&protocol.Overworld{EncounterRate: 0.5})
	assert.Contains(t, tip, "encounter rate")
}

func TestOverworldTipGenericOtherwise(t *testing.T) {
	tip := overworldTip(&protocol.Overworld{EncounterRate: 0.01})
	assert.Contains(t, tip, "Explore")
}

func TestBattleTipLowHPWarning(t *testing.T) {
	b := &protocol.Battle{Own: protocol.Battler{Pokemon: protocol.Pokemon{Species: "Pikachu", HPPercent: 15}}}
	assert.Contains(t, battleTip(b), "low on HP")
}

func TestBattleTipPrefersEffectivenessOverLowHP(t *testing.T) {
	b := &protocol.Battle{
		Own: protocol.Battler{Pokemon: protocol.Pokemon{
			Species:   "Pikachu",
			HPPercent: 10,
			Moves:     []protocol.Move{{Name: "Thunderbolt", Effectiveness: 2}},
		}},
		Opponent: protocol.Battler{Pokemon: protocol.Pokemon{Species: "Gyarados"}},
	}
	assert.Contains(t, battleTip(b), "super effective")
}
