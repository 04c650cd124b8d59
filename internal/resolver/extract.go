package resolver

import (
	"unicode/utf16"

	"github.com/vicentereig/yt-resolver/internal/types"
)

// ExtractURL finds the first link in msg or, failing that, in the message it
// replies to. A url entity yields the text it covers; a text_link entity in
// a caption yields its target.
func (r *Resolver) ExtractURL(msg *types.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	for _, m := range []*types.Message{msg, msg.ReplyTo} {
		if m == nil {
			continue
		}
		if link, ok := extractFrom(m); ok {
			return link, true
		}
	}
	return "", false
}

func extractFrom(m *types.Message) (string, bool) {
	if len(m.Entities) > 0 {
		text := m.Text
		if text == "" {
			text = m.Caption
		}
		for _, e := range m.Entities {
			if e.Type == types.EntityURL {
				return sliceUTF16(text, e.Offset, e.Length), true
			}
		}
		return "", false
	}
	for _, e := range m.CaptionEntities {
		if e.Type == types.EntityTextLink {
			return e.URL, true
		}
	}
	return "", false
}

// sliceUTF16 cuts s by UTF-16 code units, clamping out of range bounds.
func sliceUTF16(s string, offset, length int) string {
	units := utf16.Encode([]rune(s))
	start := clamp(offset, 0, len(units))
	end := clamp(offset+length, start, len(units))
	return string(utf16.Decode(units[start:end]))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
