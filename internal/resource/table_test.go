package resource

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":    {Data: []byte("<h1>Hi</h1>")},
		"a.html":        {Data: []byte("a")},
		"b.html":        {Data: []byte("b")},
		"js/index.js":   {Data: []byte("var x = \"y\";\n")},
		"toggleLed.cpp": {Data: []byte("inline void respond()\n{\n}\n")},
		"favicon.ico":   {Data: []byte{0x00, 0x01, 0xfe, 0xff}},
	}
}

func buildDemo(t *testing.T, workers int) *Table {
	t.Helper()
	fsys := demoFS()

	paths, err := Walk(fsys)
	require.NoError(t, err)

	table, err := NewBuilder(NewClassifier(nil, nil), BuilderOptions{Workers: workers}).
		Build(context.Background(), fsys, paths)
	require.NoError(t, err)
	return table
}

func TestBuildTable(t *testing.T) {
	table := buildDemo(t, 1)

	assert.Equal(t, 6, table.Len())
	assert.Equal(t, Hash("index.html"), table.Default)

	rec := table.Files["toggleLed.cpp"]
	require.NotNil(t, rec)
	assert.Equal(t, Dynamic, rec.Kind)

	rec = table.Files["favicon.ico"]
	require.NotNil(t, rec)
	assert.Equal(t, StaticBinary, rec.Kind)
	assert.Equal(t, "{0x0,0x1,0xfe,0xff,}", rec.Content)

	// Every referenced MIME hash has exactly one table entry
	for _, rec := range table.Files {
		assert.Equal(t, rec.MimeHash, table.Mimes[EscapeString(rec.Mime)])
	}
}

func TestBuildDeduplicatesMime(t *testing.T) {
	table := buildDemo(t, 1)

	a := table.Files["a.html"]
	b := table.Files["b.html"]
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Equal(t, a.MimeHash, b.MimeHash)

	count := 0
	for mime := range table.Mimes {
		if mime == "text/html" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, Hash("text/html"), table.Mimes["text/html"])
}

func TestBuildIsDeterministic(t *testing.T) {
	first := buildDemo(t, 1)
	second := buildDemo(t, 8)

	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, first.Mimes, second.Mimes)
	assert.Equal(t, first.Default, second.Default)
}

func TestBuildWithoutIndex(t *testing.T) {
	fsys := fstest.MapFS{
		"home.html":      {Data: []byte("x")},
		"sub/index.html": {Data: []byte("y")},
	}
	paths, err := Walk(fsys)
	require.NoError(t, err)

	table, err := NewBuilder(NewClassifier(nil, nil), BuilderOptions{}).Build(context.Background(), fsys, paths)
	require.NoError(t, err)
	assert.Empty(t, table.Default)
}

func TestBuildEscapesKeys(t *testing.T) {
	fsys := fstest.MapFS{
		`we"ird.txt`: {Data: []byte("x")},
	}

	table, err := NewBuilder(NewClassifier(nil, nil), BuilderOptions{}).
		Build(context.Background(), fsys, []string{`we"ird.txt`})
	require.NoError(t, err)

	rec, ok := table.Files[`we\042ird.txt`]
	require.True(t, ok)
	assert.Equal(t, `we"ird.txt`, rec.Name)
}

func TestBuildFailsOnUnreadableFile(t *testing.T) {
	fsys := demoFS()

	_, err := NewBuilder(NewClassifier(nil, nil), BuilderOptions{Workers: 2}).
		Build(context.Background(), fsys, []string{"index.html", "missing.css"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.css")
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(NewClassifier(nil, nil), BuilderOptions{Workers: 1}).
		Build(ctx, demoFS(), []string{"index.html"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildOnFileCalledPerFile(t *testing.T) {
	fsys := demoFS()
	paths, err := Walk(fsys)
	require.NoError(t, err)

	seen := make(map[string]int)
	_, err = NewBuilder(NewClassifier(nil, nil), BuilderOptions{
		Workers: 4,
		OnFile:  func(rec *FileRecord) { seen[rec.Name]++ },
	}).Build(context.Background(), fsys, paths)
	require.NoError(t, err)

	assert.Len(t, seen, len(paths))
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}
}

func TestTableAddDetectsCollision(t *testing.T) {
	table := NewTable()

	require.NoError(t, table.Add(&FileRecord{Name: "a.html", Hash: "0000000000", Mime: "text/html", MimeHash: "1111111111"}))
	// Same name again is a replacement, not a collision
	require.NoError(t, table.Add(&FileRecord{Name: "a.html", Hash: "0000000000", Mime: "text/html", MimeHash: "1111111111"}))

	err := table.Add(&FileRecord{Name: "b.html", Hash: "0000000000", Mime: "text/html", MimeHash: "1111111111"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHashCollision))

	err = table.Add(&FileRecord{Name: "c.css", Hash: "2222222222", Mime: "text/css", MimeHash: "1111111111"})
	require.ErrorIs(t, err, ErrHashCollision)
}

func TestTableRecordsSorted(t *testing.T) {
	table := buildDemo(t, 3)

	recs := table.Records()
	require.Len(t, recs, 6)
	for i := 1; i < len(recs); i++ {
		assert.Less(t, recs[i-1].Name, recs[i].Name)
	}
}

func TestBuildUsesCache(t *testing.T) {
	cache, err := NewCache(0)
	require.NoError(t, err)

	mod := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fsys := fstest.MapFS{
		"a.html": {Data: []byte("one"), ModTime: mod},
	}

	builder := NewBuilder(NewClassifier(nil, nil), BuilderOptions{Cache: cache})

	first, err := builder.Build(context.Background(), fsys, []string{"a.html"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	second, err := builder.Build(context.Background(), fsys, []string{"a.html"})
	require.NoError(t, err)
	assert.Same(t, first.Files["a.html"], second.Files["a.html"])

	// Changing content and mtime invalidates the entry
	fsys["a.html"] = &fstest.MapFile{Data: []byte("two!"), ModTime: mod.Add(time.Second)}
	third, err := builder.Build(context.Background(), fsys, []string{"a.html"})
	require.NoError(t, err)
	assert.NotSame(t, first.Files["a.html"], third.Files["a.html"])
	assert.Equal(t, "two!", third.Files["a.html"].Content)
}

func TestCacheInvalidateAndPurge(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	fsys := fstest.MapFS{}
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("f%d.txt", i)
		fsys[name] = &fstest.MapFile{Data: []byte(name)}
	}

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("f%d.txt", i)
		info, err := fsys.Stat(name)
		require.NoError(t, err)
		cache.Put(name, info, &FileRecord{Name: name})
	}
	// Bounded by size
	assert.Equal(t, 2, cache.Len())

	cache.Invalidate("f2.txt")
	assert.Equal(t, 1, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}
