package styles

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// AuthorColorPalette is a curated ANSI 256 palette for stable customer
// identity colors. Red/green slots are left for status colors.
var AuthorColorPalette = []string{
	"33", "39", "45", "69", "75", "81", "87", "99",
	"111", "117", "123", "147", "153", "159", "183", "189",
}

// AuthorColorMapper resolves deterministic per-author styles and caches them.
type AuthorColorMapper struct {
	palette []string

	mu         sync.RWMutex
	fgCache    map[string]lipgloss.Style
	colorCache map[string]string
}

// NewAuthorColorMapper returns a deterministic mapper with the default palette.
func NewAuthorColorMapper() *AuthorColorMapper {
	return NewAuthorColorMapperWithPalette(nil)
}

// NewAuthorColorMapperWithPalette uses palette, or the default when empty.
func NewAuthorColorMapperWithPalette(palette []string) *AuthorColorMapper {
	if len(palette) == 0 {
		palette = AuthorColorPalette
	}
	return &AuthorColorMapper{
		palette:    append([]string(nil), palette...),
		fgCache:    make(map[string]lipgloss.Style, 64),
		colorCache: make(map[string]string, 64),
	}
}

// Foreground returns a cached foreground style for an author.
func (m *AuthorColorMapper) Foreground(author string) lipgloss.Style {
	key := normalizeAuthor(author)

	m.mu.RLock()
	if style, ok := m.fgCache[key]; ok {
		m.mu.RUnlock()
		return style
	}
	m.mu.RUnlock()

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.ColorCode(key))).Bold(true)

	m.mu.Lock()
	m.fgCache[key] = style
	m.mu.Unlock()

	return style
}

// Badge returns a filled style for an author with readable text on top.
func (m *AuthorColorMapper) Badge(author string) lipgloss.Style {
	code := m.ColorCode(author)
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(contrastingTextColor(code))).
		Background(lipgloss.Color(code)).
		Bold(true)
}

// ColorCode returns the ANSI-256 color code selected for author.
func (m *AuthorColorMapper) ColorCode(author string) string {
	key := normalizeAuthor(author)

	m.mu.RLock()
	if code, ok := m.colorCache[key]; ok {
		m.mu.RUnlock()
		return code
	}
	m.mu.RUnlock()

	code := m.palette[hashToPalette(key, len(m.palette))]

	m.mu.Lock()
	m.colorCache[key] = code
	m.mu.Unlock()

	return code
}

func normalizeAuthor(author string) string {
	normalized := strings.ToLower(strings.TrimSpace(author))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func hashToPalette(key string, paletteLen int) int {
	if paletteLen == 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(paletteLen))
}

func contrastingTextColor(code string) string {
	index, err := strconv.Atoi(code)
	if err != nil {
		return "231"
	}
	r, g, b := ansi256ToRGB(index)
	if (299*r+587*g+114*b)/1000 >= 150 {
		return "16"
	}
	return "231"
}

func ansi256ToRGB(index int) (int, int, int) {
	switch {
	case index < 0:
		return 255, 255, 255
	case index < 16:
		table := [16][3]int{
			{0, 0, 0}, {128, 0, 0}, {0, 128, 0}, {128, 128, 0},
			{0, 0, 128}, {128, 0, 128}, {0, 128, 128}, {192, 192, 192},
			{128, 128, 128}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
			{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
		}
		return table[index][0], table[index][1], table[index][2]
	case index <= 231:
		cube := index - 16
		return channelValue(cube / 36), channelValue((cube / 6) % 6), channelValue(cube % 6)
	case index <= 255:
		gray := 8 + (index-232)*10
		return gray, gray, gray
	}
	return 255, 255, 255
}

func channelValue(v int) int {
	if v == 0 {
		return 0
	}
	return 55 + v*40
}
