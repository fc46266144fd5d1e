package decoder

import (
	"strings"

	"github.com/pokegrid/relay/internal/protocol"
)

// charTable maps a tilemap tile code to its rendered ASCII character. Only
// the text-relevant subrange is populated; anything else renders as a
// space. This decoder's own canonical mapping (original_source/ carried no
// retrievable code for this exercise — see DESIGN.md).
func tileToChar(t byte) byte {
	switch {
	case t >= 0x80 && t <= 0x99: // A-Z
		return 'A' + (t - 0x80)
	case t >= 0xA0 && t <= 0xB9: // a-z
		return 'a' + (t - 0xA0)
	case t >= 0xF6 && t <= 0xFF: // 0-9
		return '0' + (t - 0xF6)
	case t == 0x7F: // space
		return ' '
	default:
		return ' '
	}
}

func tileAt(ram *[65536]byte, row, col int) byte {
	if row < 0 || row >= tilemapHeight || col < 0 || col >= tilemapWidth {
		return 0
	}
	return ram[addrTilemap+row*tilemapWidth+col]
}

// box is one rectangular bordered region found on the tilemap.
type box struct {
	top, left, bottom, right int
}

// findBoxes scans the tilemap for rectangles delimited by the four corner
// tiles.
func findBoxes(ram *[65536]byte) []box {
	var boxes []box
	for r := 0; r < tilemapHeight; r++ {
		for c := 0; c < tilemapWidth; c++ {
			if tileAt(ram, r, c) != tileBoxTopLeft {
				continue
			}
			// Find the matching top-right in the same row.
			tr := -1
			for c2 := c + 1; c2 < tilemapWidth; c2++ {
				if tileAt(ram, r, c2) == tileBoxTopRight {
					tr = c2
					break
				}
			}
			if tr < 0 {
				continue
			}
			// Find the matching bottom-left in the same column.
			bl := -1
			for r2 := r + 1; r2 < tilemapHeight; r2++ {
				if tileAt(ram, r2, c) == tileBoxBottomLeft {
					bl = r2
					break
				}
			}
			if bl < 0 {
				continue
			}
			if tileAt(ram, bl, tr) != tileBoxBottomRight {
				continue
			}
			boxes = append(boxes, box{top: r, left: c, bottom: bl, right: tr})
		}
	}
	return boxes
}

func rowText(ram *[65536]byte, row, left, right int) string {
	var sb strings.Builder
	for c := left; c <= right; c++ {
		sb.WriteByte(tileToChar(tileAt(ram, row, c)))
	}
	return strings.TrimSpace(sb.String())
}

// scanScreen finds the first bordered box on the tilemap and classifies it
// as an interactive menu (any interior row contains the cursor tile) or
// plain screen text. Returns (screenText, menuState); at most one is
// non-nil.
func scanScreen(ram *[65536]byte) (*string, *protocol.MenuState) {
	boxes := findBoxes(ram)
	if len(boxes) == 0 {
		return nil, nil
	}
	b := boxes[0]

	var rows []string
	cursorRow, cursorCol := -1, -1
	for r := b.top + 1; r < b.bottom; r++ {
		for c := b.left + 1; c < b.right; c++ {
			if tileAt(ram, r, c) == tileCursor {
				cursorRow = len(rows)
				cursorCol = c - b.left - 1
			}
		}
		rows = append(rows, rowText(ram, r, b.left+1, b.right-1))
	}

	if cursorRow >= 0 {
		return nil, &protocol.MenuState{Rows: rows, CursorRow: cursorRow, CursorCol: cursorCol}
	}

	text := strings.TrimSpace(strings.Join(rows, " "))
	if text == "" {
		return nil, nil
	}
	return &text, nil
}
