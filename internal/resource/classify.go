package resource

import (
	"bytes"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"strings"
	"unicode/utf8"
)

// FallbackMime is used when no type is registered for an extension.
const FallbackMime = "application/octet-stream"

// KindTable declares which file extensions carry response logic instead of
// static content. Keys are lower case and include the leading dot.
type KindTable map[string]Kind

// DefaultKindTable treats Arduino C++ fragments as dynamic handlers.
func DefaultKindTable() KindTable {
	return KindTable{".cpp": Dynamic}
}

// NewKindTable builds a table marking every extension in exts as Dynamic.
func NewKindTable(exts []string) KindTable {
	t := make(KindTable, len(exts))
	for _, ext := range exts {
		t[normalizeExt(ext)] = Dynamic
	}
	return t
}

// Lookup reports the declared kind for name, if any. Content that is not
// valid UTF-8 is embedded as binary regardless of the declaration.
func (t KindTable) Lookup(name string) (Kind, bool) {
	k, ok := t[normalizeExt(path.Ext(name))]
	return k, ok
}

// Classifier turns input files into FileRecords.
type Classifier struct {
	kinds     KindTable
	mimeTypes map[string]string
}

// NewClassifier creates a classifier. A nil kinds table selects
// DefaultKindTable. mimeTypes maps extensions to MIME types and takes
// precedence over the system table.
func NewClassifier(kinds KindTable, mimeTypes map[string]string) *Classifier {
	if kinds == nil {
		kinds = DefaultKindTable()
	}

	overrides := make(map[string]string, len(mimeTypes))
	for ext, typ := range mimeTypes {
		overrides[normalizeExt(ext)] = typ
	}

	return &Classifier{kinds: kinds, mimeTypes: overrides}
}

// MimeType guesses the MIME type of name from its extension. Media type
// parameters such as charset are dropped.
func (c *Classifier) MimeType(name string) string {
	ext := normalizeExt(path.Ext(name))
	if ext == "" {
		return FallbackMime
	}

	if typ, ok := c.mimeTypes[ext]; ok {
		return typ
	}

	typ := mime.TypeByExtension(ext)
	if typ == "" {
		return FallbackMime
	}

	if media, _, err := mime.ParseMediaType(typ); err == nil {
		return media
	}
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = typ[:i]
	}
	return strings.TrimSpace(typ)
}

// Classify reads name from fsys and produces its record.
func (c *Classifier) Classify(fsys fs.FS, name string) (*FileRecord, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return c.ClassifyBytes(name, data), nil
}

// ClassifyBytes classifies already loaded file content.
func (c *Classifier) ClassifyBytes(name string, data []byte) *FileRecord {
	mimeType := c.MimeType(name)

	rec := &FileRecord{
		Name:     name,
		Hash:     Hash(name),
		Mime:     mimeType,
		MimeHash: Hash(mimeType),
		Size:     int64(len(data)),
		Default:  name == DefaultResource,
	}

	kind, declared := c.kinds.Lookup(name)

	if !utf8.Valid(data) || (declared && kind == StaticBinary) {
		rec.Kind = StaticBinary
		rec.Content = EscapeBytes(data)
		return rec
	}

	data = normalizeNewlines(data)

	if declared && kind == Dynamic {
		// Nest the handler body one level inside its wrapping namespace
		rec.Kind = Dynamic
		rec.Content = strings.ReplaceAll(string(data), "\n", "\n\t")
		return rec
	}

	rec.Kind = StaticText
	rec.Content = EscapeText(data)
	return rec
}

// normalizeNewlines turns CRLF and lone CR line endings into LF.
func normalizeNewlines(data []byte) []byte {
	if !bytes.ContainsRune(data, '\r') {
		return data
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
