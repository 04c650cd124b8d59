package types

// EntityType is the subset of Telegram entity kinds URL extraction cares about.
type EntityType string

const (
	EntityURL      EntityType = "url"
	EntityTextLink EntityType = "text_link"
	EntityOther    EntityType = "other"
)

// Entity is a rich-text span. Offset and Length count UTF-16 code units.
type Entity struct {
	Type   EntityType
	Offset int
	Length int
	URL    string
}

// Message is the client-independent view of a chat message.
type Message struct {
	Text            string
	Caption         string
	Entities        []Entity
	CaptionEntities []Entity
	ReplyTo         *Message
}
