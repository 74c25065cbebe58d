package store

import "strings"

// Search filters chats by a case-insensitive substring of the chat name or of
// any message text. An empty query returns chats unchanged. Chats are never
// modified and the result keeps their order.
func Search(chats []Chat, query string) []Chat {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return chats
	}
	out := make([]Chat, 0)
	for _, c := range chats {
		if matches(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c Chat, q string) bool {
	if strings.Contains(strings.ToLower(c.Name), q) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Text), q) {
			return true
		}
	}
	return false
}
