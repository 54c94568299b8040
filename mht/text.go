package mht

import (
	"errors"
	"fmt"
)

var (
	// ErrMimetypeFilter is returned before any traversal when the
	// caller's allow-list contains anything but text/plain or text/html.
	ErrMimetypeFilter = errors.New("mht: text filter must be text/plain or text/html")

	// ErrNoTextPart is returned when the archive holds no matching,
	// unnamed text part.
	ErrNoTextPart = errors.New("mht: no matching text part")
)

// FindText returns the first unnamed text part matching one of the
// allowed media types, searching direct children and the inside of
// multipart/alternative containers. With no types given, both
// text/plain and text/html match.
func FindText(root *Part, allowed ...string) (*Part, error) {
	if len(allowed) == 0 {
		allowed = []string{"text/plain", "text/html"}
	}
	for _, mediaType := range allowed {
		if mediaType != "text/plain" && mediaType != "text/html" {
			return nil, fmt.Errorf("%w: %q", ErrMimetypeFilter, mediaType)
		}
	}

	if p := findText(root, allowed); p != nil {
		return p, nil
	}
	return nil, ErrNoTextPart
}

// FindHTML returns the document part of the archive, the first unnamed
// text/html leaf.
func FindHTML(root *Part) (*Part, error) {
	return FindText(root, "text/html")
}

// FindPlain returns the first unnamed text/plain leaf.
func FindPlain(root *Part) (*Part, error) {
	return FindText(root, "text/plain")
}

func findText(p *Part, allowed []string) *Part {
	if !p.IsMultipart() {
		if p.Filename != "" {
			return nil
		}
		for _, mediaType := range allowed {
			if p.MediaType == mediaType {
				return p
			}
		}
		return nil
	}

	for _, child := range p.Children {
		if child.IsMultipart() && child.Subtype() != "alternative" {
			continue
		}
		if found := findText(child, allowed); found != nil {
			return found
		}
	}
	return nil
}
