package models

// ActiveIntent is the downstream behavior pinned for a conversation.
type ActiveIntent string

const (
	ActiveRouter  ActiveIntent = "router"
	ActiveSearch  ActiveIntent = "search"
	ActiveCompare ActiveIntent = "compare"
	ActiveAgenda  ActiveIntent = "agenda"
)

// Valid reports whether a is one of the known values.
func (a ActiveIntent) Valid() bool {
	switch a {
	case ActiveRouter, ActiveSearch, ActiveCompare, ActiveAgenda:
		return true
	}
	return false
}

// ParseActiveIntent maps unknown or empty values to ActiveRouter.
func ParseActiveIntent(s string) ActiveIntent {
	a := ActiveIntent(s)
	if !a.Valid() {
		return ActiveRouter
	}
	return a
}

// ConversationTurn is one user input plus the routing state needed to answer it.
type ConversationTurn struct {
	ConversationID string       `json:"conversation_id"`
	ActiveIntent   ActiveIntent `json:"active_intent"`
	UserText       string       `json:"user_text"`
}

// IntentKind tags the Intent variant.
type IntentKind string

const (
	IntentNone    IntentKind = "none"
	IntentSearch  IntentKind = "search"
	IntentCompare IntentKind = "compare"
	IntentAgenda  IntentKind = "agenda"
)

// Intent is the classification of one assistant reply. For IntentNone, Query
// holds the text to show to the user.
type Intent struct {
	Kind  IntentKind `json:"kind"`
	Query string     `json:"query"`
}

func NoIntent(text string) Intent { return Intent{Kind: IntentNone, Query: text} }

// ActiveIntent returns the pinned state this intent moves the conversation to.
func (i Intent) ActiveIntent() ActiveIntent {
	switch i.Kind {
	case IntentSearch:
		return ActiveSearch
	case IntentCompare:
		return ActiveCompare
	case IntentAgenda:
		return ActiveAgenda
	}
	return ActiveRouter
}
