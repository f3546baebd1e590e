package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnPutsEachButtonOnARow(t *testing.T) {
	markup := Column("fmt", Button{Text: "1080p", Data: "a"}, Button{Text: "Audio", Data: "b"})

	require.Len(t, markup.InlineKeyboard, 2)
	for _, row := range markup.InlineKeyboard {
		assert.Len(t, row, 1)
	}
	assert.Equal(t, "1080p", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "fmt", markup.InlineKeyboard[1][0].Unique)
	assert.Equal(t, "b", markup.InlineKeyboard[1][0].Data)
}

func TestInlineKeepsRowShape(t *testing.T) {
	markup := Inline("fmt", []Button{{Text: "a", Data: "1"}, {Text: "b", Data: "2"}}, nil)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Empty(t, markup.InlineKeyboard[1])
}
