package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvecode/gridtutor/internal/blocks"
	"github.com/evolvecode/gridtutor/internal/curriculum"
	"github.com/evolvecode/gridtutor/internal/tutor"
	"github.com/evolvecode/gridtutor/internal/types"
)

func board() types.GridConfig {
	return types.GridConfig{
		Size:      3,
		Start:     types.Cell{},
		Goal:      types.Cell{Row: 0, Col: 2},
		Obstacles: []types.Cell{{Row: 1, Col: 1}},
		Avatar:    "🐝",
		GoalEmoji: "🌻",
	}
}

func TestBoard_PlacesPieces(t *testing.T) {
	// Avatar, goal and obstacle appear in their cells
	lines := strings.Split(strings.TrimRight(Board(board(), types.Cell{}), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "🐝")
	assert.Contains(t, lines[1], "🌻")
	assert.Contains(t, lines[2], obstacleCell)
}

func TestBoard_RowsAlign(t *testing.T) {
	// Every row has the same display width regardless of emoji
	lines := strings.Split(strings.TrimRight(Board(board(), types.Cell{Row: 2, Col: 2}), "\n"), "\n")
	w := runewidth.StringWidth(lines[0])
	for _, l := range lines[1:] {
		assert.Equal(t, w, runewidth.StringWidth(l), l)
	}
}

func TestBoard_CrashMarker(t *testing.T) {
	// An avatar on an obstacle is drawn as a crash
	got := Board(board(), types.Cell{Row: 1, Col: 1})
	assert.Contains(t, got, crashCell)
	assert.NotContains(t, got, "🐝")
}

func TestChatLine_Batch(t *testing.T) {
	// Batches list their labels; only the latest carries the edit mark
	e := types.ChatEntry{Role: types.ChatUser, Kind: types.EntryBlocks, Content: `["Move Forward","Turn Right"]`, IsLatest: true}
	assert.Equal(t, "👤 [Move Forward, Turn Right] ✎", ChatLine(e, 80, Style{}))
	e.IsLatest = false
	assert.Equal(t, "👤 [Move Forward, Turn Right]", ChatLine(e, 80, Style{}))
}

func TestChatLine_ClipsByDisplayWidth(t *testing.T) {
	// Long lines are clipped to the requested width with an ellipsis
	e := types.ChatEntry{Role: types.ChatTutor, Kind: types.EntryText, Content: strings.Repeat("🌟", 40)}
	got := ChatLine(e, 20, Style{})
	assert.LessOrEqual(t, runewidth.StringWidth(got), 20)
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestChatLine_Color(t *testing.T) {
	// Tutor lines are coloured only when colour is on
	e := types.ChatEntry{Role: types.ChatTutor, Kind: types.EntryText, Content: "hi"}
	assert.NotContains(t, ChatLine(e, 80, Style{}), "\033[")
	assert.Contains(t, ChatLine(e, 80, Style{Color: true}), ansiCyan)
}

func TestBlocks_Indexed(t *testing.T) {
	// Blocks are listed with the zero-based indexes used for removal
	p := blocks.New()
	p.Append(types.Forward())
	p.Append(types.Repeat(3))
	assert.Equal(t, "  0. Move Forward\n  1. Repeat 3 Times\n", Blocks(p.Blocks()))
	assert.Equal(t, "  (no blocks)\n", Blocks(nil))
}

func TestRender_Snapshot(t *testing.T) {
	// Render includes title, board, banner and chat
	l, err := curriculum.Default().Lesson("k-l1")
	require.NoError(t, err)
	v := tutor.View{
		Lesson:      l,
		Grid:        *l.Grid,
		Orientation: types.Right,
		Banner:      tutor.BannerUnsolved,
		Chat:        []types.ChatEntry{{Role: types.ChatTutor, Kind: types.EntryText, Content: "🎯 Go"}},
	}
	var buf bytes.Buffer
	Render(&buf, v, Style{})
	got := buf.String()
	assert.Contains(t, got, "k-l1 · Hungry Bee")
	assert.Contains(t, got, "🌻")
	assert.Contains(t, got, "facing → right")
	assert.Contains(t, got, tutor.BannerUnsolved)
	assert.Contains(t, got, "🤖 🎯 Go")
}
