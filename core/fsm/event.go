package fsm

// EventKind is the coarse shape of an inbound event.
type EventKind uint8

const (
	// KindNone marks an event carrying no payload the engine understands.
	KindNone EventKind = iota
	// KindChoice is a discrete choice signal such as a button press.
	KindChoice
	// KindText is a text message.
	KindText
	// KindMedia is a voice clip, photo or other media message.
	KindMedia
)

func (k EventKind) String() string {
	switch k {
	case KindChoice:
		return "choice"
	case KindText:
		return "text"
	case KindMedia:
		return "media"
	default:
		return "none"
	}
}

// MediaKind tags a media payload.
type MediaKind string

const (
	MediaVoice MediaKind = "voice"
	MediaPhoto MediaKind = "photo"
)

// MessageRef points at a message previously delivered by the transport.
// The zero value refers to no message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether ref points nowhere.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// RawEvent is an inbound event as delivered by the transport. Exactly one of
// Tag, Text or Media is normally set; Classify applies them in that priority.
type RawEvent struct {
	UserID UserID
	ChatID int64

	Tag   string
	Text  string
	Media MediaKind
	// Ref is the transport reference of the media payload.
	Ref     string
	Caption string
	// FileName is the sender's name for the media file, when it has one.
	FileName string

	// Message is the message the event originated from (the keyboard
	// message for choices).
	Message MessageRef
	Locale  string
	Name    string
}

// Choice builds a choice event.
func Choice(user UserID, tag string) RawEvent {
	return RawEvent{UserID: user, ChatID: int64(user), Tag: tag}
}

// TextMessage builds a text event.
func TextMessage(user UserID, body string) RawEvent {
	return RawEvent{UserID: user, ChatID: int64(user), Text: body}
}

// MediaMessage builds a media event.
func MediaMessage(user UserID, kind MediaKind, ref string) RawEvent {
	return RawEvent{UserID: user, ChatID: int64(user), Media: kind, Ref: ref}
}

// DispatchKey is the reduced signature used to select a handler.
type DispatchKey struct {
	Kind  EventKind
	Tag   string
	State State
}
