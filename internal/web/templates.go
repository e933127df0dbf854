package web

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/jaminalder/codex-game-hub/internal/app"
	"github.com/jaminalder/codex-game-hub/internal/domain"
)

type templates struct {
	base   *template.Template
	index  *template.Template
	game   *template.Template
	board  *template.Template
	memory *template.Template
	deck   *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"cellSymbol": func(c domain.Cell) string { return c.String() },
		"add":        func(a, b int) int { return a + b },
		"mul":        func(a, b int) int { return a * b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>Game Hub</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	// Fragments live in the base set so pages can include them.
	template.Must(base.New("board").Parse(boardTemplate))
	template.Must(base.New("deck").Parse(deckTemplate))

	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Tic-Tac-Toe</h1>
<p><a href="/">Back to games</a></p>
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div hx-sse="swap:board">{{template "board" .}}</div>
</div>`))
	memory := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Memory Match</h1>
<p><a href="/">Back to games</a></p>
<div hx-ext="sse" hx-sse="connect:/memory/{{.ID}}/events">
  <div hx-sse="swap:board">{{template "deck" .}}</div>
</div>`))

	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	deck := template.Must(template.New("deck_only").Funcs(funcs()).Parse(deckTemplate))
	return &templates{base: base, index: index, game: game, board: board, memory: memory, deck: deck}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const indexTemplate = `
<h1>Pick a game</h1>
<div class="menu">
  <div class="card">
    <h2>🎮 Tic-Tac-Toe</h2><p>Classic X-O</p>
    <form action="/game" method="post">
      <label><input type="checkbox" name="vsbot" value="on" checked> VS Bot</label>
      <select name="difficulty">
        {{range .Difficulties}}<option{{if eq . $.Difficulty}} selected{{end}}>{{.}}</option>{{end}}
      </select>
      <button>Play</button>
    </form>
  </div>
  <div class="card">
    <h2>🧠 Memory Match</h2><p>Match the cards</p>
    <form action="/memory" method="post">
      <select name="difficulty">
        {{range .Difficulties}}<option{{if eq . $.MemoryDifficulty}} selected{{end}}>{{.}}</option>{{end}}
      </select>
      <button>Play</button>
    </form>
  </div>
  {{range .Soon}}
  <div class="card soon"><h2>{{.}}</h2><span class="badge">soon</span></div>
  {{end}}
</div>`

const boardTemplate = `
<div id="board">
  <p class="status">{{.Status}}</p>
  <div class="scores">
    <span class="score x">X {{.Tally.XWins}}</span>
    <span class="score draw">Draws {{.Tally.Draws}}</span>
    <span class="score o">O {{.Tally.OWins}}</span>
  </div>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}{{$i := add (mul $r 3) $c}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit" class="cell{{if index $.WinCells $i}} win{{end}}">{{cellSymbol (index $.Board $i)}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
  <div class="controls">
    <form hx-post="/game/{{.ID}}/vsbot" hx-target="#board" hx-swap="outerHTML" method="post">
      <input type="hidden" name="vsbot" value="{{if .VsBot}}off{{else}}on{{end}}">
      <button type="submit">VS Bot: {{if .VsBot}}on{{else}}off{{end}}</button>
    </form>
    <form hx-post="/game/{{.ID}}/difficulty" hx-target="#board" hx-swap="outerHTML" method="post">
      <button type="submit" class="pill">{{.Difficulty}}</button>
    </form>
    <form hx-post="/game/{{.ID}}/round" hx-target="#board" hx-swap="outerHTML" method="post">
      <button type="submit">Play again</button>
    </form>
    <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post">
      <button type="submit">Reset scores</button>
    </form>
  </div>
</div>
`

const deckTemplate = `
<div id="memory-board">
  <div class="stats">
    <span class="pill">{{.Difficulty}}</span>
    <span>Moves {{.Moves}}</span>
    <span>Time {{.Elapsed}}</span>
  </div>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="grid" data-cols="{{.Cols}}">
    {{range $i, $c := .Cards}}
    <form hx-post="/memory/{{$.ID}}/flip" hx-target="#memory-board" hx-swap="outerHTML" method="post">
      <input type="hidden" name="i" value="{{$i}}">
      <button type="submit" class="card{{if $c.Matched}} matched{{end}}">{{if $c.FaceUp}}{{$c.Symbol}}{{end}}</button>
    </form>
    {{end}}
  </div>
  {{if .Done}}
  <p class="result">Done! {{.Moves}} moves in {{.Elapsed}}</p>
  {{else}}
  <p class="tip">Match every pair.</p>
  {{end}}
  <div class="controls">
    <form hx-post="/memory/{{.ID}}/round" hx-target="#memory-board" hx-swap="outerHTML" method="post">
      <button type="submit">Play again</button>
    </form>
    <form hx-post="/memory/{{.ID}}/difficulty" hx-target="#memory-board" hx-swap="outerHTML" method="post">
      <button type="submit">Change level</button>
    </form>
  </div>
</div>
`

// Data models for templates
type indexData struct {
	Difficulties     []domain.Difficulty
	Difficulty       domain.Difficulty
	MemoryDifficulty domain.Difficulty
	Soon             []string
}

type boardData struct {
	ID         string
	Board      domain.Board
	WinCells   [9]bool
	Status     string
	Tally      domain.Tally
	Difficulty domain.Difficulty
	VsBot      bool
	Error      string
}

func newBoardData(gs app.GameState, errMsg string) boardData {
	d := boardData{
		ID:         gs.ID,
		Board:      gs.Game.Board,
		Tally:      gs.Tally,
		Difficulty: gs.Difficulty,
		VsBot:      gs.VsBot,
		Error:      errMsg,
	}
	if cells, ok := gs.Game.Result.Cells(); ok {
		for _, i := range cells {
			d.WinCells[i] = true
		}
	}
	switch {
	case gs.Game.Result.Status == domain.Draw:
		d.Status = "Draw"
	case gs.Game.Result.Status == domain.Win:
		d.Status = "Winner: " + gs.Game.Winner().String()
	case gs.BotPending:
		d.Status = "Bot is thinking"
	default:
		d.Status = "Turn: " + gs.Game.Turn.String()
	}
	return d
}

type cardData struct {
	Symbol  string
	Matched bool
	FaceUp  bool
}

type deckData struct {
	ID         string
	Difficulty domain.Difficulty
	Cols       int
	Cards      []cardData
	Moves      int
	Elapsed    string
	Done       bool
	Error      string
}

func newDeckData(ms app.MemoryState, errMsg string) deckData {
	m := ms.Memory
	d := deckData{
		ID:         ms.ID,
		Difficulty: m.Difficulty,
		Cols:       m.Grid.Cols,
		Moves:      m.Moves,
		Elapsed:    domain.FormatElapsed(m.Elapsed(time.Now())),
		Done:       m.Done(),
		Error:      errMsg,
	}
	for i, c := range m.Cards {
		d.Cards = append(d.Cards, cardData{Symbol: c.Symbol, Matched: c.Matched, FaceUp: m.FaceUp(i)})
	}
	return d
}

const playerCookie = "player_id"

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookie); err == nil && app.ValidID(c.Value) {
		return c.Value
	}
	v := app.NewPlayerID()
	http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/"})
	return v
}
