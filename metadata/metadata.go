// Package metadata extracts addressing information from message headers.
package metadata

import (
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message"

	"github.com/dhcgn/mht-to-tsv/rfc2047"
)

var receivedForRe = regexp.MustCompile(`for\s+<([^<>\s]+@[^<>\s]+)>`)

// Metadata holds the addressing fields of a single message.
type Metadata struct {
	MessageID    string
	Sender       string
	ReplyTo      string
	InReplyTo    string
	Subject      string
	ContentType  string
	Date         time.Time
	ReceivedDate time.Time
	To           []string
	Cc           []string
	Bcc          []string
	ReceivedFor  []string

	// Names maps an address to the display name it first appeared with.
	Names map[string]string
}

// FromHeader extracts the metadata of a message from its header.
func FromHeader(h message.Header) Metadata {
	md := Metadata{Names: make(map[string]string)}

	md.MessageID = strings.Trim(strings.TrimSpace(h.Get("Message-Id")), " <>")
	md.InReplyTo = strings.Trim(rfc2047.Decode(h.Get("In-Reply-To")), " <>")
	md.Subject = rfc2047.Decode(h.Get("Subject"))

	if from := Addresses(h.Get("From"), md.Names); len(from) > 0 {
		md.Sender = from[0]
	}
	if replyTo := Addresses(h.Get("Reply-To"), md.Names); len(replyTo) > 0 {
		md.ReplyTo = replyTo[0]
	}
	md.To = Addresses(h.Get("To"), md.Names)
	md.Cc = Addresses(h.Get("Cc"), md.Names)
	md.Bcc = Addresses(h.Get("Bcc"), md.Names)

	mediaType, _, err := h.ContentType()
	if err != nil {
		mediaType = "text/plain"
	}
	md.ContentType = mediaType

	if date := h.Get("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			md.Date = t
		}
	}

	fields := h.FieldsByKey("Received")
	for fields.Next() {
		value := fields.Value()
		if m := receivedForRe.FindStringSubmatch(value); m != nil {
			md.ReceivedFor = append(md.ReceivedFor, m[1])
		}
		if md.ReceivedDate.IsZero() {
			if idx := strings.LastIndex(value, ";"); idx >= 0 {
				if t, err := mail.ParseDate(strings.TrimSpace(value[idx+1:])); err == nil {
					md.ReceivedDate = t
				}
			}
		}
	}

	return md
}

// Receivers returns every address the message was delivered to: the To,
// Cc and Bcc lists plus addresses found in Received headers.
func (md Metadata) Receivers() []string {
	return union(md.To, md.Cc, md.Bcc, md.ReceivedFor)
}

// AllAddresses returns every address the message touches, including the
// sender and reply-to.
func (md Metadata) AllAddresses() []string {
	extra := make([]string, 0, 2)
	if md.Sender != "" {
		extra = append(extra, md.Sender)
	}
	if md.ReplyTo != "" {
		extra = append(extra, md.ReplyTo)
	}
	return union(extra, md.Receivers())
}

// Addresses parses an address header value into a sorted, de-duplicated
// list of plain addresses. Parsing walks the value left to right, taking
// the shortest prefix that parses as a single address, then continues
// after it. Display names found along the way are recorded in names; the
// first name seen for an address wins and is never erased by a later
// bare occurrence.
func Addresses(value string, names map[string]string) []string {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	value = rfc2047.Decode(value)

	seen := make(map[string]struct{})
	var list []string
	for value != "" {
		name, addr, ok := parseFront(value)
		if !ok {
			break
		}

		if _, dup := seen[addr]; !dup {
			seen[addr] = struct{}{}
			list = append(list, addr)
		}
		if names != nil && name != "" {
			if _, exists := names[addr]; !exists {
				names[addr] = name
			}
		}

		idx := strings.Index(value, addr)
		if idx < 0 {
			break
		}
		idx += len(addr)
		if idx < len(value) && value[idx] == '>' {
			idx++
		}
		if idx < len(value) && value[idx] == ',' {
			idx++
		}
		value = strings.TrimSpace(value[idx:])
	}

	sort.Strings(list)
	return list
}

// parseFront parses the first address in s. It tries the whole string
// first, then prefixes ending at each comma from left to right.
func parseFront(s string) (name, addr string, ok bool) {
	if a, err := mail.ParseAddress(s); err == nil {
		return a.Name, a.Address, true
	}
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			continue
		}
		if a, err := mail.ParseAddress(s[:i]); err == nil {
			return a.Name, a.Address, true
		}
	}
	return "", "", false
}

func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var result []string
	for _, list := range lists {
		for _, item := range list {
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			result = append(result, item)
		}
	}
	sort.Strings(result)
	return result
}
