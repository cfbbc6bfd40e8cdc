package render

import (
	"github.com/stonelabs/webduino-generator/internal/resource"
)

// Entry is the per-file view templates range over.
type Entry struct {
	Name        string
	FileHash    string
	Mime        string // escaped
	MimeHash    string
	FileType    resource.Kind
	FileContent string
	Size        int64
	IsDefault   bool
}

func (e *Entry) IsText() bool    { return e.FileType == resource.StaticText }
func (e *Entry) IsBinary() bool  { return e.FileType == resource.StaticBinary }
func (e *Entry) IsDynamic() bool { return e.FileType == resource.Dynamic }

// Context is the data every template is executed with. All three tables are
// exposed to every template.
type Context struct {
	// FileData is keyed by the escaped file name.
	FileData map[string]*Entry
	// MimeData maps the escaped MIME type to its hash.
	MimeData map[string]string
	MetaData map[string]string
	// Default is the hash of the root URL handler, empty if there is none.
	Default string
	// DefaultEntry is the FileData entry of the root URL handler, or nil.
	DefaultEntry *Entry
}

// NewContext converts a resource table and build metadata into the
// template context.
func NewContext(table *resource.Table, meta resource.Metadata) *Context {
	ctx := &Context{
		FileData: make(map[string]*Entry, len(table.Files)),
		MimeData: make(map[string]string, len(table.Mimes)),
		MetaData: make(map[string]string, len(meta)),
		Default:  table.Default,
	}

	for key, rec := range table.Files {
		entry := &Entry{
			Name:        rec.Name,
			FileHash:    rec.Hash,
			Mime:        resource.EscapeString(rec.Mime),
			MimeHash:    rec.MimeHash,
			FileType:    rec.Kind,
			FileContent: rec.Content,
			Size:        rec.Size,
			IsDefault:   rec.Default,
		}
		ctx.FileData[key] = entry
		if rec.Hash == table.Default {
			ctx.DefaultEntry = entry
		}
	}
	for mime, hash := range table.Mimes {
		ctx.MimeData[mime] = hash
	}
	for k, v := range meta {
		ctx.MetaData[k] = v
	}

	return ctx
}
