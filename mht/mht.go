// Package mht reads MHT web archives (RFC 2557 multipart/related
// messages, as produced by OneNote and word processors) into a part tree
// that the rest of the converter works on.
//
// Decoding is tolerant by design: parts with an unknown charset keep
// their raw bytes and are flagged, parts whose transfer decoding fails
// keep the error, and only structurally invalid MIME aborts parsing.
package mht

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/dhcgn/mht-to-tsv/rfc2047"
)

// Part is one node of the archive tree. Leaf parts carry their decoded
// body; multipart containers carry children instead.
type Part struct {
	MediaType        string
	Params           map[string]string
	ContentLocation  string
	TransferEncoding string
	Filename         string
	Header           message.Header

	// Body is the transfer-decoded payload of a leaf part. Text parts
	// with a known charset have additionally been converted to UTF-8.
	Body []byte

	// BodyErr is set when the payload could not be fully decoded. The
	// walker drops such parts instead of aborting the conversion.
	BodyErr error

	// CharsetFallback marks a text part whose declared charset was not
	// recognized, so Body holds the raw, unconverted bytes.
	CharsetFallback bool

	Children []*Part
}

func (p *Part) IsMultipart() bool {
	return strings.HasPrefix(p.MediaType, "multipart/")
}

// Subtype returns the part of the media type after the slash.
func (p *Part) Subtype() string {
	_, sub, _ := strings.Cut(p.MediaType, "/")
	return sub
}

// EffectiveContentType reports the media type of Body as it is now, after
// decoding: a converted text part declares utf-8 regardless of what the
// wire said, a fallback part keeps its declared charset.
func (p *Part) EffectiveContentType() string {
	cs := p.Params["charset"]
	if cs == "" {
		return p.MediaType
	}
	if !p.CharsetFallback {
		cs = "utf-8"
	}
	return mime.FormatMediaType(p.MediaType, map[string]string{"charset": cs})
}

// Parse reads a full archive into a part tree. Unknown charsets and
// transfer encodings degrade to raw bodies rather than failing; only
// unparseable MIME structure returns an error.
func Parse(r io.Reader) (*Part, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if entity == nil {
		return nil, fmt.Errorf("read archive: empty input")
	}
	return buildPart(entity, err)
}

func buildPart(entity *message.Entity, readErr error) (*Part, error) {
	mediaType, params, err := entity.Header.ContentType()
	if err != nil {
		mediaType, params = "text/plain", nil
	}

	p := &Part{
		MediaType:        strings.ToLower(mediaType),
		Params:           params,
		ContentLocation:  strings.TrimSpace(entity.Header.Get("Content-Location")),
		TransferEncoding: strings.ToLower(strings.TrimSpace(entity.Header.Get("Content-Transfer-Encoding"))),
		Filename:         decodeFilename(entity.Header),
		Header:           entity.Header,
		CharsetFallback:  message.IsUnknownCharset(readErr),
	}

	if mr := entity.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			var childReadErr error
			if err != nil {
				if child == nil || !(message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)) {
					return nil, fmt.Errorf("read part %d: %w", len(p.Children), err)
				}
				childReadErr = err
			}
			cp, err := buildPart(child, childReadErr)
			if err != nil {
				return nil, err
			}
			p.Children = append(p.Children, cp)
		}
		return p, nil
	}

	// Leaf bodies are read eagerly so the multipart reader can advance.
	// A failure mid-body is kept on the part, not returned.
	body, err := io.ReadAll(entity.Body)
	p.Body = body
	if err != nil {
		p.BodyErr = err
	}
	return p, nil
}

func decodeFilename(h message.Header) string {
	ah := mail.AttachmentHeader{Header: h}
	name, _ := ah.Filename()
	if name == "" {
		return ""
	}
	return strings.TrimSpace(rfc2047.Decode(name))
}
