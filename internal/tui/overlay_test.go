package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/replydesk/internal/composer"
)

func blankScreen(w, h int) string {
	rows := make([]string, h)
	for i := range rows {
		rows[i] = strings.Repeat(".", w)
	}
	return strings.Join(rows, "\n")
}

func TestPlaceOverlay(t *testing.T) {
	popup := "ab\ncd"
	tests := []struct {
		name   string
		layer  composer.Overlay
		wantAt [2]int // row, col of "ab"
	}{
		{
			name:   "below anchor",
			layer:  composer.Overlay{Content: popup, Anchor: composer.Anchor{Top: 2, Left: 3}},
			wantAt: [2]int{2, 3},
		},
		{
			name:   "flips above when the bottom is reached",
			layer:  composer.Overlay{Content: popup, Anchor: composer.Anchor{Top: 5, Left: 1}},
			wantAt: [2]int{2, 1},
		},
		{
			name:   "shifted left at the right edge",
			layer:  composer.Overlay{Content: popup, Anchor: composer.Anchor{Top: 0, Left: 9}},
			wantAt: [2]int{0, 8},
		},
		{
			name:   "modal centered",
			layer:  composer.Overlay{Content: popup, Modal: true},
			wantAt: [2]int{2, 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := strings.Split(placeOverlay(blankScreen(10, 6), tt.layer, 10, 6), "\n")
			require.Len(t, out, 6)
			row, col := tt.wantAt[0], tt.wantAt[1]
			require.Equal(t, "ab", out[row][col:col+2])
			require.Equal(t, "cd", out[row+1][col:col+2])
			for _, line := range out {
				require.Len(t, line, 10)
			}
		})
	}
}

func TestPlaceOverlayPadsShortBackground(t *testing.T) {
	out := placeOverlay("xy", composer.Overlay{Content: "M", Anchor: composer.Anchor{Top: 0, Left: 4}}, 6, 1)
	require.Equal(t, "xy  M", out)
}

func TestTruncateVis(t *testing.T) {
	require.Equal(t, "hello", truncateVis("hello", 5))
	require.Equal(t, "hel…", truncateVis("hello", 4))
	require.Empty(t, truncateVis("hello", 0))
}
