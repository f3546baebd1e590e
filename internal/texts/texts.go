// Package texts holds the user-facing strings in every supported language.
package texts

import (
	"fmt"
	"strings"

	"github.com/m3rciful/mediabot/internal/media"
)

// Language is a supported interface language.
type Language int

const (
	English Language = iota
	Russian
)

// LanguageFrom maps a Telegram language code to a Language; unknown codes fall back to English.
func LanguageFrom(code string) Language {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "ru":
		return Russian
	default:
		return English
	}
}

// Key names a response.
type Key int

const (
	SendALink Key = iota
	BrokenSession
	ChooseFormat
	PleaseWait
	FailedToDownload

	HelpHeading
	HelpCommandHelp
	HelpCommandAdd
	HelpCommandRemove
	HelpCommandList
	UserAdded
	UserRemoved
	NoUsers
	UsersHeading
	InvalidUserID
	AddUsage
	RemoveUsage
	TooFast
)

var catalog = map[Key][2]string{
	SendALink:        {"Hi! I can download from YouTube, send a link to a video", "Привет! Я умею скачивать с ютуба, отправь ссылку на видео"},
	BrokenSession:    {"Please repeat your request, it's been too long I've forgotten X_X", "Пожалуйста повторите свой запрос, я забыл какая ссылка была X_X"},
	ChooseFormat:     {"Choose what you want to download:", "Выбери формат:"},
	PleaseWait:       {"The downloaded media will be attached to this message ⌛", "Как скачаю, прикреплю в это сообщение ⌛"},
	FailedToDownload: {"Failed to download :(", "Не удалось скачать :("},

	HelpHeading:       {"Available commands:", "Список доступных команд:"},
	HelpCommandHelp:   {"show the list of commands", "показать список команд"},
	HelpCommandAdd:    {"({id} {alias}) grant a user access to the bot", "({id} {alias}) дать пользователю доступ к боту"},
	HelpCommandRemove: {"({id}) revoke a user's access to the bot", "({id}) отобрать у пользователя доступ к боту"},
	HelpCommandList:   {"list the bot users", "вывести список пользователей бота"},
	UserAdded:         {"User added :)", "Пользователь добавлен :)"},
	UserRemoved:       {"User removed :(", "Пользователь удалён :("},
	NoUsers:           {"No users yet! :0", "Пользователей нету! :0"},
	UsersHeading:      {"Users:", "Пользователи:"},
	InvalidUserID:     {"Invalid user ID.\nTry @UserBotInfoBot :)", "Неверный ID пользователя.\nВоспользуйся ботом @UserBotInfoBot :)"},
	AddUsage:          {"Usage: /add {id} {alias}", "Использование: /add {id} {alias}"},
	RemoveUsage:       {"Usage: /remove {id}", "Использование: /remove {id}"},
	TooFast:           {"Too many requests, try again in a moment", "Слишком много запросов, повтори чуть позже"},
}

// Text returns the response for key in lang.
func Text(lang Language, key Key) string {
	pair, ok := catalog[key]
	if !ok {
		return ""
	}
	if lang == Russian {
		return pair[1]
	}
	return pair[0]
}

var formatLabels = map[media.Format][2]string{
	media.FullHD:    {"📺 High quality", "📺 Высокое качество"},
	media.HD:        {"📺 Normal quality", "📺 Среднее качество"},
	media.LowRes:    {"📺 Low quality", "📺 Низкое качество"},
	media.AudioOnly: {"🔊 Audio-only", "🔊 Только звук"},
}

// FormatLabel is the button caption for f.
func FormatLabel(lang Language, f media.Format) string {
	pair, ok := formatLabels[f]
	if !ok {
		return f.String()
	}
	if lang == Russian {
		return pair[1]
	}
	return pair[0]
}

// Downloads renders per-user counters as shown in the user list.
func Downloads(videos, audios uint64) string {
	return fmt.Sprintf("(📺: %d) (🔊: %d)", videos, audios)
}
