package middleware

import (
	"strings"

	coreconfig "github.com/m3rciful/gptbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind classifies u into one of the coreconfig.Update* kinds.
func UpdateKind(u tele.Update) string {
	if u.Callback != nil {
		return coreconfig.UpdateCallback
	}
	m := u.Message
	switch {
	case m == nil:
		return coreconfig.UpdateOther
	case m.Photo != nil:
		return coreconfig.UpdatePhoto
	case m.Voice != nil:
		return coreconfig.UpdateVoice
	case m.Audio != nil:
		return coreconfig.UpdateAudio
	case strings.HasPrefix(m.Text, "/"):
		return coreconfig.UpdateCommand
	case m.Text != "":
		return coreconfig.UpdateText
	}
	return coreconfig.UpdateOther
}
