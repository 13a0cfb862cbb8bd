package fsm

// Classify reduces ev to its dispatch key. Choice signals win over text,
// text wins over media. The current state is copied from sess verbatim.
func Classify(ev RawEvent, sess Session) DispatchKey {
	key := DispatchKey{State: sess.State}
	switch {
	case ev.Tag != "":
		key.Kind = KindChoice
		key.Tag = ev.Tag
	case ev.Text != "":
		key.Kind = KindText
	case ev.Media != "":
		key.Kind = KindMedia
		key.Tag = string(ev.Media)
	}
	return key
}
