package decoder

import (
	"strings"

	"github.com/pokegrid/relay/internal/protocol"
)

// Byte layout of one partyMonSize(44)-byte Pokémon struct, relative to its
// base address. This decoder's own canonical layout (original_source/
// carried no retrievable code for this exercise — see DESIGN.md).
const (
	monOffSpecies   = 0
	monOffHP        = 1 // u16 BE
	monOffLevel     = 3
	monOffStatus    = 4
	monOffType1     = 5
	monOffType2     = 6 // 0xFF => single-type
	monOffMoves     = 7 // 4 bytes
	monOffPP        = 11 // 4 bytes
	monOffMaxHP     = 15 // u16 BE
	monOffModAtk     = 17
	monOffModDef     = 18
	monOffModSpeed   = 19
	monOffModSpecial = 20 // Gen-1 has one Special stage, not separate SpAtk/SpDef
	monOffModAcc     = 21
	monOffModEvasion = 22
	monOffNickname   = 23 // 20 bytes, NUL-terminated
)

func stage(raw byte) int {
	return int(raw) - 7
}

func readNickname(ram *[65536]byte, base int) string {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		b := ram[base+monOffNickname+i]
		if b == 0x00 {
			break
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// readMon decodes one partyMonSize-byte struct at base into a Pokemon.
// HP/MaxHP/Level never fall to 0 on uninitialised RAM.
func readMon(ram *[65536]byte, base int) protocol.Pokemon {
	species := speciesFromCode(ram[base+monOffSpecies])

	hp := int(ram[base+monOffHP])<<8 | int(ram[base+monOffHP+1])
	maxHP := int(ram[base+monOffMaxHP])<<8 | int(ram[base+monOffMaxHP+1])
	if maxHP < 1 {
		maxHP = 1
	}
	if hp < 1 {
		hp = 1
	}
	if hp > maxHP {
		hp = maxHP
	}

	level := int(ram[base+monOffLevel])
	if level < 1 {
		level = 1
	}
	if level > 100 {
		level = 100
	}

	hpPercent := roundTenth(float64(hp) / float64(maxHP) * 100)

	types := []string{string(typeFromCode(ram[base + monOffType1]))}
	if t2 := ram[base+monOffType2]; t2 != 0xFF && t2 != ram[base+monOffType1] {
		types = append(types, string(typeFromCode(t2)))
	}

	moves := make([]protocol.Move, 0, 4)
	for i := 0; i < 4; i++ {
		id := ram[base+monOffMoves+i]
		if id == 0 {
			continue
		}
		m := moveFromID(id)
		pp := int(ram[base+monOffPP+i])
		moves = append(moves, protocol.Move{
			Name:       m.Name,
			Type:       string(m.Type),
			Power:      m.Power,
			Accuracy:   m.Accuracy,
			PP:         pp,
			MaxPP:      m.PP,
			IsPhysical: isPhysical(m.Type),
		})
	}

	special := stage(ram[base+monOffModSpecial])
	mods := protocol.StatModifiers{
		Attack:         stage(ram[base+monOffModAtk]),
		Defense:        stage(ram[base+monOffModDef]),
		Speed:          stage(ram[base+monOffModSpeed]),
		SpecialAttack:  special,
		SpecialDefense: special,
		Accuracy:       stage(ram[base+monOffModAcc]),
		Evasion:        stage(ram[base+monOffModEvasion]),
	}

	return protocol.Pokemon{
		Species:   species,
		Nickname:  readNickname(ram, base),
		Level:     level,
		HP:        hp,
		MaxHP:     maxHP,
		HPPercent: hpPercent,
		Types:     types,
		Moves:     moves,
		Condition: conditionFromStatus(ram[base+monOffStatus]),
		Modifiers: mods,
	}
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// readParty decodes up to 6 party Pokémon.
func readParty(ram *[65536]byte) []protocol.Pokemon {
	count := int(ram[addrPartyCount])
	if count > 6 {
		count = 6
	}
	party := make([]protocol.Pokemon, 0, count)
	for i := 0; i < count; i++ {
		base := addrPartyMons + i*partyMonSize
		party = append(party, readMon(ram, base))
	}
	return party
}

// readBattler decodes the active battler at base into a Battler, clamping
// the opponent's HP display the same way an own mon is clamped.
func readBattler(ram *[65536]byte, base int) protocol.Battler {
	return protocol.Battler{Pokemon: readMon(ram, base)}
}

// readInventory decodes the bag's (id, qty) pairs, 0xFF-terminated.
func readInventory(ram *[65536]byte) []protocol.InventoryItem {
	count := int(ram[addrBagCount])
	if count > 20 {
		count = 20
	}
	items := make([]protocol.InventoryItem, 0, count)
	for i := 0; i < count; i++ {
		base := addrBagItems + i*2
		id := ram[base]
		if id == 0xFF {
			break
		}
		qty := int(ram[base+1])
		if qty < 1 {
			continue
		}
		items = append(items, protocol.InventoryItem{Name: itemName(id), Quantity: qty})
	}
	return items
}

func popcount19(bitfield [19]byte) int {
	n := 0
	for _, b := range bitfield {
		for b != 0 {
			n += int(b & 1)
			b >>= 1
		}
	}
	return n
}

func readPokedexCounts(ram *[65536]byte) (owned, seen int) {
	var ownedBits, seenBits [19]byte
	for i := 0; i < 19; i++ {
		ownedBits[i] = ram[addrPokedexOwned+i]
		seenBits[i] = ram[addrPokedexSeen+i]
	}
	return popcount19(ownedBits), popcount19(seenBits)
}

// nearbySpriteCount counts overworld sprite slots (excluding the player at
// entry 0) whose state-data marks them as present/active.
func nearbySpriteCount(ram *[65536]byte) int {
	n := 0
	for i := 1; i < spriteEntryCount; i++ {
		base := addrSpriteStateData1 + i*spriteEntrySize
		if ram[base] != 0xFF && ram[base] != 0x00 {
			n++
		}
	}
	return n
}

// availableHMs lists HM item names present in the bag, in acquisition order.
func availableHMs(ram *[65536]byte) []string {
	var out []string
	count := int(ram[addrBagCount])
	if count > 20 {
		count = 20
	}
	have := map[byte]bool{}
	for i := 0; i < count; i++ {
		base := addrBagItems + i*2
		id := ram[base]
		if id == 0xFF {
			break
		}
		have[id] = true
	}
	for _, hm := range hmOrder {
		if have[hm] {
			out = append(out, hmName(hm))
		}
	}
	return out
}
