package models

// Ledger tag names and values.
const (
	TagContentType = "Content-Type"
	TagUserID      = "User-ID"
	TagType        = "Type"
	TagRunID       = "Run-ID"

	TypeMemory  = "memory"
	TypeChatLog = "Chat-Log"
)

// Tag is a name/value pair attached to a ledger upload.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LedgerRecord is the JSON blob stored on the ledger for one turn.
type LedgerRecord struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	Response string `json:"response"`
}

// FindTag returns the value of the first tag with the given name.
func FindTag(tags []Tag, name string) (string, bool) {
	for _, tag := range tags {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return "", false
}

// HasTag reports whether tags contain name=value.
func HasTag(tags []Tag, name, value string) bool {
	for _, tag := range tags {
		if tag.Name == name && tag.Value == value {
			return true
		}
	}
	return false
}
