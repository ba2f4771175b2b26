// Package game implements tic-tac-toe for a single human player (X)
// against a computer opponent (O).
package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Mark is the content of a board cell.
type Mark int

const (
	Empty Mark = iota
	X
	O
)

// String returns "X", "O" or "".
func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// MarshalJSON encodes the mark as its string form.
func (m Mark) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes the string form written by MarshalJSON.
func (m *Mark) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "X":
		*m = X
	case "O":
		*m = O
	case "":
		*m = Empty
	default:
		return fmt.Errorf("game: unknown mark %q", s)
	}
	return nil
}

// Winner is the outcome of a round.
type Winner int

const (
	None Winner = iota
	WinnerX
	WinnerO
	Draw
)

// String returns "X", "O", "DRAW" or "".
func (w Winner) String() string {
	switch w {
	case WinnerX:
		return "X"
	case WinnerO:
		return "O"
	case Draw:
		return "DRAW"
	default:
		return ""
	}
}

// MarshalJSON encodes the winner as its string form.
func (w Winner) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON decodes the string form written by MarshalJSON.
func (w *Winner) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "X":
		*w = WinnerX
	case "O":
		*w = WinnerO
	case "DRAW":
		*w = Draw
	case "":
		*w = None
	default:
		return fmt.Errorf("game: unknown winner %q", s)
	}
	return nil
}

// Difficulty selects the computer's strategy.
type Difficulty int

const (
	Hard Difficulty = iota
	Easy
)

// String returns "EASY" or "HARD".
func (d Difficulty) String() string {
	if d == Easy {
		return "EASY"
	}
	return "HARD"
}

// MarshalJSON encodes the difficulty as its string form.
func (d Difficulty) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes the string form written by MarshalJSON.
func (d *Difficulty) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, ok := ParseDifficulty(s)
	if !ok {
		return fmt.Errorf("game: unknown difficulty %q", s)
	}
	*d = v
	return nil
}

// ParseDifficulty maps "EASY"/"HARD" (any case) to a Difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToUpper(s) {
	case "EASY":
		return Easy, true
	case "HARD":
		return Hard, true
	}
	return Hard, false
}

// Cell is a board coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

var (
	corners = []Cell{{0, 0}, {0, 2}, {2, 0}, {2, 2}}
	edges   = []Cell{{0, 1}, {1, 0}, {1, 2}, {2, 1}}
	lines   = buildLines()
)

// buildLines lists rows, then columns, then the two diagonals.
func buildLines() [][3]Cell {
	var ls [][3]Cell
	for r := 0; r < 3; r++ {
		ls = append(ls, [3]Cell{{r, 0}, {r, 1}, {r, 2}})
	}
	for c := 0; c < 3; c++ {
		ls = append(ls, [3]Cell{{0, c}, {1, c}, {2, c}})
	}
	ls = append(ls, [3]Cell{{0, 0}, {1, 1}, {2, 2}})
	ls = append(ls, [3]Cell{{0, 2}, {1, 1}, {2, 0}})
	return ls
}

// Game is one tic-tac-toe session. It is not safe for concurrent use.
type Game struct {
	Difficulty Difficulty

	board   [3][3]Mark
	cursor  Cell
	winner  Winner
	winLine []Cell
	moves   int
	rng     *rand.Rand
}

// New starts a game. A nil rng uses a randomly seeded source.
func New(d Difficulty, rng *rand.Rand) *Game {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g := &Game{Difficulty: d, rng: rng}
	g.Reset()
	return g
}

// Reset clears the board and centres the cursor. Difficulty is kept.
func (g *Game) Reset() {
	g.board = [3][3]Mark{}
	g.cursor = Cell{1, 1}
	g.winner = None
	g.winLine = nil
	g.moves = 0
}

// Board returns a copy of the board, indexed [row][col].
func (g *Game) Board() [3][3]Mark { return g.board }

// Cursor returns the highlighted cell.
func (g *Game) Cursor() Cell { return g.cursor }

// Winner returns the round result so far; None while undecided.
func (g *Game) Winner() Winner { return g.winner }

// WinLine returns the three winning cells, or nil for no winner or a draw.
func (g *Game) WinLine() []Cell {
	return append([]Cell(nil), g.winLine...)
}

// Over reports whether the round is decided.
func (g *Game) Over() bool { return g.winner != None }

// HumanMoves counts X marks placed this round.
func (g *Game) HumanMoves() int { return g.moves }

// MoveCursor steps the cursor by one cell, clamped to the board. dx -1/+1
// moves left/right; dy +1 moves up and -1 moves down.
func (g *Game) MoveCursor(dx, dy int) {
	switch dx {
	case -1:
		g.cursor.Col = max(0, g.cursor.Col-1)
	case 1:
		g.cursor.Col = min(2, g.cursor.Col+1)
	}
	switch dy {
	case -1:
		g.cursor.Row = min(2, g.cursor.Row+1)
	case 1:
		g.cursor.Row = max(0, g.cursor.Row-1)
	}
}

// PlaceX marks the cursor cell for the human. It returns false, changing
// nothing, if the cell is occupied or the round is over.
func (g *Game) PlaceX() bool {
	if g.Over() {
		return false
	}
	c := g.cursor
	if g.board[c.Row][c.Col] != Empty {
		return false
	}
	g.board[c.Row][c.Col] = X
	g.moves++
	g.evaluate()
	return true
}

// MaybeAITurn plays O unless the round is already decided.
func (g *Game) MaybeAITurn() {
	if g.Over() {
		return
	}
	var (
		mv Cell
		ok bool
	)
	if g.Difficulty == Easy {
		mv, ok = g.pick(g.empties())
	} else {
		mv, ok = g.smartMove()
	}
	if ok {
		g.board[mv.Row][mv.Col] = O
	}
	g.evaluate()
}

func (g *Game) empties() []Cell {
	var out []Cell
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if g.board[r][c] == Empty {
				out = append(out, Cell{r, c})
			}
		}
	}
	return out
}

func (g *Game) openOf(cells []Cell) []Cell {
	var out []Cell
	for _, c := range cells {
		if g.board[c.Row][c.Col] == Empty {
			out = append(out, c)
		}
	}
	return out
}

func (g *Game) pick(cells []Cell) (Cell, bool) {
	if len(cells) == 0 {
		return Cell{}, false
	}
	return cells[g.rng.IntN(len(cells))], true
}

// smartMove wins if possible, then blocks, then takes the centre, a
// corner and finally an edge.
func (g *Game) smartMove() (Cell, bool) {
	for _, m := range []Mark{O, X} {
		for _, c := range g.empties() {
			g.board[c.Row][c.Col] = m
			won := g.hasLine(m)
			g.board[c.Row][c.Col] = Empty
			if won {
				return c, true
			}
		}
	}
	if g.board[1][1] == Empty {
		return Cell{1, 1}, true
	}
	if c, ok := g.pick(g.openOf(corners)); ok {
		return c, true
	}
	return g.pick(g.openOf(edges))
}

func (g *Game) hasLine(m Mark) bool {
	for _, l := range lines {
		if g.board[l[0].Row][l[0].Col] == m && g.board[l[1].Row][l[1].Col] == m && g.board[l[2].Row][l[2].Col] == m {
			return true
		}
	}
	return false
}

// evaluate sets the winner. A completed line takes precedence over a full
// board.
func (g *Game) evaluate() {
	for _, l := range lines {
		a := g.board[l[0].Row][l[0].Col]
		if a != Empty && a == g.board[l[1].Row][l[1].Col] && a == g.board[l[2].Row][l[2].Col] {
			if a == X {
				g.winner = WinnerX
			} else {
				g.winner = WinnerO
			}
			g.winLine = l[:]
			return
		}
	}
	if len(g.empties()) == 0 {
		g.winner = Draw
		g.winLine = nil
		return
	}
	g.winner = None
	g.winLine = nil
}
