package model

// Well-known metadata keys read by the listing view.
const (
	MetaName        = "name"
	MetaEmail       = "email"
	MetaChapterName = "chapterName"
)

// Metadata holds caller-supplied form fields. Keys are open; missing
// keys stay missing in storage.
type Metadata map[string]string

// Clone returns a copy that shares nothing with m. A nil or empty
// mapping clones to nil.
func (m Metadata) Clone() Metadata {
	if len(m) == 0 {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Lookup returns the value for key and whether it is present.
func (m Metadata) Lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}
