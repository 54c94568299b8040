package assets

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dhcgn/mht-to-tsv/mht"
	"github.com/dhcgn/mht-to-tsv/stats"
)

var capturedAt = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

const extractArchive = `MIME-Version: 1.0
Content-Type: multipart/related; boundary="B"; type="text/html"

--B
Content-Location: http://localhost/Export/page.htm
Content-Type: text/html

<html><body><img src="page_files/image001.png"></body></html>
--B
Content-Location: http://localhost/Export/page_files/filelist.xml
Content-Type: text/xml

<xml xmlns:o="urn:schemas-microsoft-com:office:office"></xml>
--B
Content-Location: http://localhost/Export/page_files/image001.png
Content-Transfer-Encoding: base64
Content-Type: image/png

aW1hZ2Ugb25l
--B
Content-Location: http://localhost/Export/page_files/image001.png
Content-Transfer-Encoding: base64
Content-Type: image/png

ZHVwbGljYXRl
--B
Content-Location: http://localhost/Export/page_files/image002.png
Content-Transfer-Encoding: base64
Content-Type: image/png

aW1hZ2UgdHdv
--B
Content-Type: image/png
Content-Transfer-Encoding: base64

bm8gbG9jYXRpb24=
--B
Content-Location: http://localhost/Export/page_files/broken.png
Content-Transfer-Encoding: base64
Content-Type: image/png

!!!corrupt!!!
--B--
`

func extractFixture(t *testing.T) (*Index, stats.Summary) {
	t.Helper()

	root, err := mht.Parse(strings.NewReader(extractArchive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})

	collector := stats.NewCollector()
	extractor := NewExtractor(store, Options{CapturedAt: capturedAt}, collector, nil)
	index, err := extractor.ExtractAll(mht.NewWalker(root, false))
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}
	return index, collector.Snapshot()
}

func TestExtractor_ExtractAll(t *testing.T) {
	index, _ := extractFixture(t)

	if index.Len() != 2 {
		t.Fatalf("index holds %d assets, want 2", index.Len())
	}

	rec, ok := index.Lookup("/Export/page_files/image001.png")
	if !ok {
		t.Fatal("image001 not indexed under its canonical path")
	}
	if rec.Name != "2024-01-02-15-04-05_image001.png" {
		t.Errorf("image001 name = %q", rec.Name)
	}

	if _, ok := index.Lookup("/Export/page_files/image002.png"); !ok {
		t.Error("image002 not indexed")
	}
	if _, ok := index.Lookup("/Export/page.htm"); ok {
		t.Error("structural page.htm was extracted")
	}
	if _, ok := index.Lookup("/Export/page_files/filelist.xml"); ok {
		t.Error("structural filelist.xml was extracted")
	}
}

func TestExtractor_Counters(t *testing.T) {
	_, summary := extractFixture(t)

	// The corrupt part never reaches the extractor, so six parts are
	// scanned and one decode skip is recorded.
	if summary.Attachments != 6 {
		t.Errorf("Attachments = %d, want 6", summary.Attachments)
	}
	if summary.Extracted != 2 {
		t.Errorf("Extracted = %d, want 2", summary.Extracted)
	}
	if summary.Structural != 2 {
		t.Errorf("Structural = %d, want 2", summary.Structural)
	}
	if summary.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", summary.Duplicates)
	}
	if summary.NoLocation != 1 {
		t.Errorf("NoLocation = %d, want 1", summary.NoLocation)
	}
	if summary.DecodeSkips != 1 {
		t.Errorf("DecodeSkips = %d, want 1", summary.DecodeSkips)
	}
}

// First write wins: the duplicated location keeps the first part's bytes.
func TestExtractor_FirstWriteWins(t *testing.T) {
	index, _ := extractFixture(t)

	rec, ok := index.Lookup("/Export/page_files/image001.png")
	if !ok {
		t.Fatal("image001 not indexed")
	}
	content, err := os.ReadFile(rec.TempPath)
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}
	if string(content) != "image one" {
		t.Errorf("image001 content = %q, want first occurrence", content)
	}
}

func TestExtractor_BasenameCollision(t *testing.T) {
	const archive = `Content-Type: multipart/related; boundary="B"

--B
Content-Location: http://x/a/pic.png
Content-Type: image/png

first
--B
Content-Location: http://x/b/pic.png
Content-Type: image/png

second
--B--
`
	root, err := mht.Parse(strings.NewReader(archive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Cleanup()

	extractor := NewExtractor(store, Options{CapturedAt: capturedAt}, nil, nil)
	index, err := extractor.ExtractAll(mht.NewWalker(root, false))
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}

	recA, _ := index.Lookup("/a/pic.png")
	recB, _ := index.Lookup("/b/pic.png")
	if recA == nil || recB == nil {
		t.Fatal("both colliding assets must be indexed")
	}
	if recA.Name != "2024-01-02-15-04-05_pic.png" {
		t.Errorf("first name = %q", recA.Name)
	}
	if recB.Name != "2024-01-02-15-04-05_2_pic.png" {
		t.Errorf("second name = %q", recB.Name)
	}
}

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		location string
		want     string
		ok       bool
	}{
		{"http://localhost/Export/page_files/image001.png", "/Export/page_files/image001.png", true},
		{"Title_files/image001.png", "Title_files/image001.png", true},
		{"a/./b.png", "a/b.png", true},
		{"a/sub/../b.png", "a/b.png", true},
		{"http://host/x/%20y.png", "/x/ y.png", true},
		{"  http://host/pic.png  ", "/pic.png", true},
		{"", "", false},
		{"cid:12345@part", "", false},
		{"mailto:someone@example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			got, ok := CanonicalPath(tt.location)
			if ok != tt.ok {
				t.Fatalf("CanonicalPath(%q) ok = %v, want %v", tt.location, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("CanonicalPath(%q) = %q, want %q", tt.location, got, tt.want)
			}
		})
	}
}
