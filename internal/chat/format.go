package chat

import "strings"

// Priority places a prefix or postfix relative to the message. Higher
// priorities sit closer to the text.
type Priority int

const (
	Low Priority = iota
	Med
	High
)

type affix struct {
	text     string
	priority Priority
}

// Format collects the prefixes and postfixes wrapped around a chat line.
// Adding the same text twice only updates its priority.
type Format struct {
	prefix  []affix
	postfix []affix
}

func (f *Format) AddPrefix(text string, p Priority) *Format {
	f.prefix = put(f.prefix, text, p)
	return f
}

func (f *Format) AddPostfix(text string, p Priority) *Format {
	f.postfix = put(f.postfix, text, p)
	return f
}

// Combine merges other into f; other's priorities win on conflicts.
func (f *Format) Combine(other *Format) *Format {
	if other == nil {
		return f
	}
	for _, a := range other.prefix {
		f.prefix = put(f.prefix, a.text, a.priority)
	}
	for _, a := range other.postfix {
		f.postfix = put(f.postfix, a.text, a.priority)
	}
	return f
}

func (f *Format) Prefixes(p Priority) []string  { return pick(f.prefix, p) }
func (f *Format) Postfixes(p Priority) []string { return pick(f.postfix, p) }

// Apply wraps message: prefixes from Low to High, then the message, then
// postfixes from High to Low.
func (f *Format) Apply(message string) string {
	var b strings.Builder
	for _, p := range []Priority{Low, Med, High} {
		b.WriteString(strings.Join(f.Prefixes(p), ""))
	}
	b.WriteString(message)
	for _, p := range []Priority{High, Med, Low} {
		b.WriteString(strings.Join(f.Postfixes(p), ""))
	}
	return b.String()
}

func put(list []affix, text string, p Priority) []affix {
	for i := range list {
		if list[i].text == text {
			list[i].priority = p
			return list
		}
	}
	return append(list, affix{text: text, priority: p})
}

func pick(list []affix, p Priority) []string {
	var out []string
	for _, a := range list {
		if a.priority == p {
			out = append(out, a.text)
		}
	}
	return out
}
