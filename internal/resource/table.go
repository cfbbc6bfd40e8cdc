package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrHashCollision is returned when two distinct names map to the same
// short hash. Generated symbols would clash, so the build is aborted.
var ErrHashCollision = errors.New("identifier hash collision")

// FileTable maps the escaped file name to its record.
type FileTable map[string]*FileRecord

// MimeTable maps the escaped MIME type string to its hash. Files sharing a
// type share one entry.
type MimeTable map[string]string

// Table is the data handed to the renderer.
type Table struct {
	Files FileTable
	Mimes MimeTable
	// Default is the hash of the file served for the root URL, if any.
	Default string

	fileOwners map[string]string
	mimeOwners map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		Files:      make(FileTable),
		Mimes:      make(MimeTable),
		fileOwners: make(map[string]string),
		mimeOwners: make(map[string]string),
	}
}

// Add inserts rec. Adding the same name twice replaces the earlier record.
func (t *Table) Add(rec *FileRecord) error {
	if owner, ok := t.fileOwners[rec.Hash]; ok && owner != rec.Name {
		return fmt.Errorf("%w: %q and %q both hash to %s", ErrHashCollision, owner, rec.Name, rec.Hash)
	}
	if owner, ok := t.mimeOwners[rec.MimeHash]; ok && owner != rec.Mime {
		return fmt.Errorf("%w: MIME types %q and %q both hash to %s", ErrHashCollision, owner, rec.Mime, rec.MimeHash)
	}

	t.fileOwners[rec.Hash] = rec.Name
	t.mimeOwners[rec.MimeHash] = rec.Mime

	t.Files[EscapeString(rec.Name)] = rec
	t.Mimes[EscapeString(rec.Mime)] = rec.MimeHash

	if rec.Default {
		t.Default = rec.Hash
	}

	return nil
}

// Len returns the number of file records.
func (t *Table) Len() int {
	return len(t.Files)
}

// Records returns the file records ordered by name.
func (t *Table) Records() []*FileRecord {
	recs := make([]*FileRecord, 0, len(t.Files))
	for _, rec := range t.Files {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Workers bounds concurrent classification. Zero uses GOMAXPROCS, one
	// classifies sequentially.
	Workers int
	// Cache, when set, reuses records of files whose size and modification
	// time are unchanged since the previous build.
	Cache *Cache
	// OnFile is called once per classified file, serialized.
	OnFile func(rec *FileRecord)
	Logger *zap.Logger
}

// Builder classifies a set of paths into a Table.
type Builder struct {
	classifier *Classifier
	opts       BuilderOptions
	logger     *zap.Logger
}

// NewBuilder creates a builder around classifier.
func NewBuilder(classifier *Classifier, opts BuilderOptions) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		classifier: classifier,
		opts:       opts,
		logger:     logger,
	}
}

// Build classifies every path read from fsys. The first error cancels the
// remaining work and is returned; no partial table is produced.
func (b *Builder) Build(ctx context.Context, fsys fs.FS, paths []string) (*Table, error) {
	table := NewTable()

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	for _, name := range paths {
		name := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec, err := b.classify(fsys, name)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			if err := table.Add(rec); err != nil {
				return err
			}
			if b.opts.OnFile != nil {
				b.opts.OnFile(rec)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.Debug("resource table built",
		zap.Int("files", len(table.Files)),
		zap.Int("mime_types", len(table.Mimes)),
		zap.String("default", table.Default))

	return table, nil
}

func (b *Builder) classify(fsys fs.FS, name string) (*FileRecord, error) {
	if b.opts.Cache == nil {
		rec, err := b.classifier.Classify(fsys, name)
		if err == nil {
			b.logger.Debug("classified", zap.String("file", name), zap.String("hash", rec.Hash),
				zap.String("mime", rec.Mime), zap.Stringer("kind", rec.Kind))
		}
		return rec, err
	}

	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}

	if rec, ok := b.opts.Cache.Get(name, info); ok {
		b.logger.Debug("cache hit", zap.String("file", name))
		return rec, nil
	}

	rec, err := b.classifier.Classify(fsys, name)
	if err != nil {
		return nil, err
	}
	b.opts.Cache.Put(name, info, rec)
	b.logger.Debug("classified", zap.String("file", name), zap.String("hash", rec.Hash),
		zap.String("mime", rec.Mime), zap.Stringer("kind", rec.Kind))

	return rec, nil
}
