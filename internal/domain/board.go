package domain

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Lines lists every winning triple: rows, then columns, then diagonals.
// Evaluate depends on this order.
var Lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// EmptyCells returns the indexes of empty cells in ascending order.
func (b Board) EmptyCells() []int {
	out := make([]int, 0, len(b))
	for i, c := range b {
		if c == Empty {
			out = append(out, i)
		}
	}
	return out
}

// Full reports whether no empty cell remains.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Status classifies a board.
type Status uint8

const (
	InProgress Status = iota
	Win
	Draw
)

func (s Status) String() string {
	switch s {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "in-progress"
	}
}

// Result is the terminal classification of a board. Line is an index
// into Lines, or -1 unless Status is Win.
type Result struct {
	Status Status
	Winner Cell
	Line   int
}

// Cells returns the three board indexes of the winning line.
func (r Result) Cells() ([3]int, bool) {
	if r.Status != Win || r.Line < 0 || r.Line >= len(Lines) {
		return [3]int{}, false
	}
	return Lines[r.Line], true
}

// Terminal reports whether the board is won or drawn.
func (r Result) Terminal() bool { return r.Status != InProgress }

// Evaluate classifies b. The first completed line in Lines order wins.
func Evaluate(b Board) Result {
	for i, ln := range Lines {
		if b[ln[0]] != Empty && b[ln[0]] == b[ln[1]] && b[ln[0]] == b[ln[2]] {
			return Result{Status: Win, Winner: b[ln[0]], Line: i}
		}
	}
	if b.Full() {
		return Result{Status: Draw, Line: -1}
	}
	return Result{Status: InProgress, Line: -1}
}
