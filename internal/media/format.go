// Package media describes the download formats offered to users and the
// callback token that carries a format choice back to the bot.
package media

import "fmt"

// Format is a quality choice offered in the format prompt.
type Format int

const (
	FullHD Format = iota
	HD
	LowRes
	AudioOnly
)

// All returns the formats in the order they are offered.
func All() []Format {
	return []Format{FullHD, HD, LowRes, AudioOnly}
}

// Code is the single-character wire code used inside tokens.
func (f Format) Code() byte {
	switch f {
	case FullHD:
		return 'f'
	case HD:
		return 'h'
	case LowRes:
		return 'l'
	case AudioOnly:
		return 'a'
	default:
		return 0
	}
}

// FormatFromCode resolves a wire code back to a Format.
func FormatFromCode(code byte) (Format, bool) {
	for _, f := range All() {
		if f.Code() == code {
			return f, true
		}
	}
	return 0, false
}

// IsAudio reports whether the format produces an audio-only artifact.
func (f Format) IsAudio() bool { return f == AudioOnly }

// Height is the maximum video height, zero for audio.
func (f Format) Height() int {
	switch f {
	case FullHD:
		return 1080
	case HD:
		return 720
	case LowRes:
		return 480
	default:
		return 0
	}
}

// Selector returns the yt-dlp format selector for video formats.
// AVC1 is preferred so the merged mp4 plays inline in Telegram clients.
func (f Format) Selector() string {
	if f.IsAudio() {
		return "bestaudio/best"
	}
	h := f.Height()
	return fmt.Sprintf(
		"bestvideo[height<=%[1]d][vcodec^=avc1]+bestaudio/bestvideo[height<=%[1]d]+bestaudio/best[height<=%[1]d]/best",
		h,
	)
}

// String is the stable name used in logs and metrics labels.
func (f Format) String() string {
	switch f {
	case FullHD:
		return "fullhd"
	case HD:
		return "hd"
	case LowRes:
		return "lowres"
	case AudioOnly:
		return "audio"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}
