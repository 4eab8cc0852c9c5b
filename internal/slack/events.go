package slack

// Envelope is the outer payload delivered to the events endpoint.
// Type distinguishes the url_verification handshake from event_callback
// deliveries; the nested Event is only meaningful for the latter.
type Envelope struct {
	Type      string `json:"type"`
	Token     string `json:"token"`
	Challenge string `json:"challenge"`
	TeamID    string `json:"team_id"`
	Event     Event  `json:"event"`
}

// Event is the inner callback event. Subtype is set for system messages
// (edits, joins, bot posts) as opposed to authored user text.
type Event struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	BotID   string `json:"bot_id"`
	Text    string `json:"text"`
	TS      string `json:"ts"`
}
