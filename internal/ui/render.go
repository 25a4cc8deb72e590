package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/evolvecode/gridtutor/internal/blocks"
	"github.com/evolvecode/gridtutor/internal/tutor"
	"github.com/evolvecode/gridtutor/internal/types"
)

// ANSI codes
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
)

const (
	cellWidth     = 3
	emptyCell     = "·"
	obstacleCell  = "🧱"
	crashCell     = "💥"
	defaultAvatar = "🤖"
	defaultGoal   = "🏁"
	chatWidth     = 72
)

var facingArrow = map[types.Orientation]string{
	types.Up:    "↑",
	types.Right: "→",
	types.Down:  "↓",
	types.Left:  "←",
}

// Style controls colour output.
type Style struct {
	Color bool
}

func (s Style) paint(code, text string) string {
	if !s.Color || code == "" {
		return text
	}
	return code + text + ansiReset
}

// Error formats an error line for the prompt.
func (s Style) Error(msg string) string { return s.paint(ansiRed, "✗ "+msg) }

func bannerColor(b string) string {
	switch b {
	case tutor.BannerSuccess:
		return ansiGreen + ansiBold
	case tutor.BannerMistake:
		return ansiRed + ansiBold
	case "":
		return ""
	}
	return ansiYellow
}

// Board draws the grid with the avatar at pos. Every cell is padded to the
// same display width so emoji and ASCII cells line up.
func Board(g types.GridConfig, pos types.Cell) string {
	avatar := g.Avatar
	if avatar == "" {
		avatar = defaultAvatar
	}
	goal := g.GoalEmoji
	if goal == "" {
		goal = defaultGoal
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", cellWidth))
	for c := 0; c < g.Size; c++ {
		sb.WriteString(runewidth.FillRight(fmt.Sprint(c), cellWidth))
	}
	sb.WriteString("\n")
	for r := 0; r < g.Size; r++ {
		sb.WriteString(runewidth.FillRight(fmt.Sprint(r), cellWidth))
		for c := 0; c < g.Size; c++ {
			cell := types.Cell{Row: r, Col: c}
			s := emptyCell
			switch {
			case cell == pos && g.IsObstacle(cell):
				s = crashCell
			case cell == pos:
				s = avatar
			case g.IsObstacle(cell):
				s = obstacleCell
			case cell == g.Goal:
				s = goal
			}
			sb.WriteString(runewidth.FillRight(s, cellWidth))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ChatLine formats one chat entry, clipped to width display columns.
func ChatLine(e types.ChatEntry, width int, st Style) string {
	var line, color string
	switch {
	case e.Role == types.ChatTutor:
		line, color = "🤖 "+e.Content, ansiCyan
	case e.Kind == types.EntryBlocks:
		labels, err := blocks.UnmarshalBatch(e.Content)
		if err != nil {
			labels = []string{e.Content}
		}
		line = "👤 [" + strings.Join(labels, ", ") + "]"
		if e.IsLatest {
			line += " ✎"
		} else {
			color = ansiDim
		}
	default:
		line = "👤 " + e.Content
	}
	return st.paint(color, clip(line, width))
}

// Blocks lists the command sequence with the indexes used by "remove".
func Blocks(bs []blocks.Block) string {
	if len(bs) == 0 {
		return "  (no blocks)\n"
	}
	var sb strings.Builder
	for i, b := range bs {
		fmt.Fprintf(&sb, "  %d. %s\n", i, b.Command.Label())
	}
	return sb.String()
}

// Render writes a full snapshot of v: title, board, banner, blocks and chat.
func Render(w io.Writer, v tutor.View, st Style) {
	fmt.Fprintf(w, "%s\n", st.paint(ansiBold, fmt.Sprintf("%s · %s", v.Lesson.ID, v.Lesson.Title)))
	if v.Mission != "" {
		fmt.Fprintf(w, "%s\n", v.Mission)
	}
	fmt.Fprint(w, Board(v.Grid, v.Position))
	fmt.Fprintf(w, "facing %s %s\n", facingArrow[v.Orientation], v.Orientation)
	if v.Banner != "" {
		fmt.Fprintf(w, "%s\n", st.paint(bannerColor(v.Banner), v.Banner))
	}
	fmt.Fprint(w, Blocks(v.Blocks))
	for _, e := range v.Chat {
		fmt.Fprintln(w, ChatLine(e, chatWidth, st))
	}
}

// clip truncates s to at most n display columns, appending "…" if trimmed.
func clip(s string, n int) string {
	return runewidth.Truncate(s, n, "…")
}
