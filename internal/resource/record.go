package resource

import "fmt"

// Kind classifies how a resource is embedded in the generated sketch.
// The numeric values are part of the template contract.
type Kind int

const (
	StaticText Kind = iota
	StaticBinary
	Dynamic
)

func (k Kind) String() string {
	switch k {
	case StaticText:
		return "static-text"
	case StaticBinary:
		return "static-binary"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "static-text", "text":
		return StaticText, nil
	case "static-binary", "binary":
		return StaticBinary, nil
	case "dynamic":
		return Dynamic, nil
	}
	return 0, fmt.Errorf("unknown content kind %q", s)
}

// DefaultResource is the file served for the root URL.
const DefaultResource = "index.html"

// FileRecord is one classified input file.
type FileRecord struct {
	Name     string // relative path, slash separated
	Hash     string
	Mime     string
	MimeHash string
	Content  string
	Kind     Kind
	Size     int64 // bytes read from disk
	Default  bool
}
