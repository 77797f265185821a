package domain

// BoardSize is the side length of a bingo card.
const BoardSize = 5

// FreeCell is the card token for a cell that can never be matched by speech.
const FreeCell = "FREE"

// CellGrid is a player's marked-cell state.
type CellGrid [BoardSize][BoardSize]bool

// WordGrid holds the words assigned to a player's card. An empty string or
// FreeCell marks a non-matchable cell.
type WordGrid [BoardSize][BoardSize]string

// Cell addresses one position on a card.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether the cell lies on the board.
func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

// HasBingo reports whether any full row, full column, or either diagonal of
// the grid is entirely marked.
func HasBingo(cells CellGrid) bool {
	for row := 0; row < BoardSize; row++ {
		full := true
		for col := 0; col < BoardSize; col++ {
			if !cells[row][col] {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}

	for col := 0; col < BoardSize; col++ {
		full := true
		for row := 0; row < BoardSize; row++ {
			if !cells[row][col] {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}

	diag, anti := true, true
	for i := 0; i < BoardSize; i++ {
		if !cells[i][i] {
			diag = false
		}
		if !cells[i][BoardSize-1-i] {
			anti = false
		}
	}
	return diag || anti
}
