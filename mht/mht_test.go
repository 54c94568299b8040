package mht

import (
	"encoding/base64"
	"strings"
	"testing"
)

const pngBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

const relatedArchive = `MIME-Version: 1.0
Content-Type: multipart/related; boundary="BOUNDARY"; type="text/html"

This is a multi-part message in MIME format.

--BOUNDARY
Content-Location: http://localhost/Export/page.htm
Content-Transfer-Encoding: quoted-printable
Content-Type: text/html; charset="utf-8"

<html><body><p>Caf=C3=A9</p></body></html>
--BOUNDARY
Content-Location: http://localhost/Export/page_files/image001.png
Content-Transfer-Encoding: base64
Content-Type: image/png

` + pngBase64 + `
--BOUNDARY--
`

func TestParse(t *testing.T) {
	root, err := Parse(strings.NewReader(relatedArchive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if root.MediaType != "multipart/related" {
		t.Errorf("root media type = %q, want multipart/related", root.MediaType)
	}
	if !root.IsMultipart() {
		t.Error("root.IsMultipart() = false")
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}

	doc := root.Children[0]
	if doc.MediaType != "text/html" {
		t.Errorf("first child media type = %q, want text/html", doc.MediaType)
	}
	if doc.ContentLocation != "http://localhost/Export/page.htm" {
		t.Errorf("first child location = %q", doc.ContentLocation)
	}
	if doc.TransferEncoding != "quoted-printable" {
		t.Errorf("first child transfer encoding = %q", doc.TransferEncoding)
	}
	if doc.CharsetFallback {
		t.Error("first child unexpectedly fell back to raw charset")
	}
	// Quoted-printable is undone exactly once.
	if got := string(doc.Body); got != "<html><body><p>Café</p></body></html>" {
		t.Errorf("first child body = %q", got)
	}

	img := root.Children[1]
	if img.MediaType != "image/png" {
		t.Errorf("second child media type = %q, want image/png", img.MediaType)
	}
	wantPNG, err := base64.StdEncoding.DecodeString(pngBase64)
	if err != nil {
		t.Fatal(err)
	}
	if string(img.Body) != string(wantPNG) {
		t.Errorf("second child body: got %d bytes, want %d decoded PNG bytes", len(img.Body), len(wantPNG))
	}
	if img.BodyErr != nil {
		t.Errorf("second child BodyErr = %v, want nil", img.BodyErr)
	}
}

func TestParse_LeafRoot(t *testing.T) {
	root, err := Parse(strings.NewReader("Content-Type: text/html\n\n<p>hi</p>"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if root.IsMultipart() {
		t.Error("leaf root reported as multipart")
	}
	if got := string(root.Body); got != "<p>hi</p>" {
		t.Errorf("body = %q, want %q", got, "<p>hi</p>")
	}
}

func TestParse_UnknownCharsetFallsBack(t *testing.T) {
	const archive = `Content-Type: multipart/related; boundary="B"

--B
Content-Type: text/html; charset="x-nonexistent"

<p>raw bytes</p>
--B--
`
	root, err := Parse(strings.NewReader(archive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	doc := root.Children[0]
	if !doc.CharsetFallback {
		t.Error("CharsetFallback = false, want true for unknown charset")
	}
	if got := string(doc.Body); got != "<p>raw bytes</p>" {
		t.Errorf("body = %q, want raw bytes kept", got)
	}
	if doc.BodyErr != nil {
		t.Errorf("BodyErr = %v, want nil", doc.BodyErr)
	}
}

func TestParse_UnknownTransferEncoding(t *testing.T) {
	const archive = `Content-Type: multipart/related; boundary="B"

--B
Content-Type: application/octet-stream
Content-Transfer-Encoding: x-zip

payload kept as-is
--B--
`
	root, err := Parse(strings.NewReader(archive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	part := root.Children[0]
	if got := string(part.Body); got != "payload kept as-is" {
		t.Errorf("body = %q, want raw payload", got)
	}
	if part.BodyErr != nil {
		t.Errorf("BodyErr = %v, want nil", part.BodyErr)
	}
}

func TestParse_CorruptPayloadKeepsError(t *testing.T) {
	const archive = `Content-Type: multipart/related; boundary="B"

--B
Content-Location: http://x/broken.png
Content-Transfer-Encoding: base64
Content-Type: image/png

!!!not-base64!!!
--B--
`
	root, err := Parse(strings.NewReader(archive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if root.Children[0].BodyErr == nil {
		t.Error("BodyErr = nil, want base64 decode error")
	}
}

func TestParse_StructurallyInvalid(t *testing.T) {
	inputs := map[string]string{
		"empty":      "",
		"not a mime": "garbage without any header colon\nmore garbage\n",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(input)); err == nil {
				t.Error("Parse() error = nil, want hard error")
			}
		})
	}
}

func TestPart_EffectiveContentType(t *testing.T) {
	tests := []struct {
		name string
		part Part
		want string
	}{
		{
			name: "converted text part declares utf-8",
			part: Part{MediaType: "text/html", Params: map[string]string{"charset": "windows-1252"}},
			want: "text/html; charset=utf-8",
		},
		{
			name: "fallback part keeps declared charset",
			part: Part{MediaType: "text/html", Params: map[string]string{"charset": "x-nonexistent"}, CharsetFallback: true},
			want: "text/html; charset=x-nonexistent",
		},
		{
			name: "no charset",
			part: Part{MediaType: "image/png"},
			want: "image/png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.part.EffectiveContentType(); got != tt.want {
				t.Errorf("EffectiveContentType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_EncodedFilename(t *testing.T) {
	const archive = `Content-Type: multipart/related; boundary="B"

--B
Content-Type: image/png
Content-Disposition: attachment; filename="=?utf-8?B?YsOkci5wbmc=?="
Content-Transfer-Encoding: base64

` + pngBase64 + `
--B--
`
	root, err := Parse(strings.NewReader(archive))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := root.Children[0].Filename; got != "bär.png" {
		t.Errorf("Filename = %q, want %q", got, "bär.png")
	}
}

func TestParse_MissingBoundaryIsHardError(t *testing.T) {
	const archive = `Content-Type: multipart/related

--B
Content-Type: text/html

<p>x</p>
--B--
`
	if _, err := Parse(strings.NewReader(archive)); err == nil {
		t.Error("Parse() error = nil, want error for missing boundary")
	}
}
