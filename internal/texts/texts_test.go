package texts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/mediabot/internal/media"
)

func TestLanguageFrom(t *testing.T) {
	assert.Equal(t, Russian, LanguageFrom("ru"))
	assert.Equal(t, English, LanguageFrom("en"))
	assert.Equal(t, English, LanguageFrom(""))
	assert.Equal(t, English, LanguageFrom("de"))
}

func TestEveryKeyIsTranslated(t *testing.T) {
	for key := SendALink; key <= TooFast; key++ {
		assert.NotEmpty(t, Text(English, key), "en key %d", key)
		assert.NotEmpty(t, Text(Russian, key), "ru key %d", key)
	}
	for _, f := range media.All() {
		assert.NotEmpty(t, FormatLabel(English, f))
		assert.NotEqual(t, FormatLabel(English, f), FormatLabel(Russian, f))
	}
}

func TestDownloads(t *testing.T) {
	assert.Equal(t, "(📺: 3) (🔊: 1)", Downloads(3, 1))
}
