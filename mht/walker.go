package mht

// Attachment is one leaf part yielded by a Walker.
type Attachment struct {
	Content   []byte
	Filename  string
	MediaType string
	Part      *Part
}

// Walker yields the attachments of an archive in document order, one
// Next call at a time. multipart/alternative containers are flattened
// recursively; other nested multipart containers are skipped entirely.
// A walker cannot be restarted.
//
//	w := mht.NewWalker(root, false)
//	for w.Next() {
//		att := w.Attachment()
//	}
type Walker struct {
	stack     [][]*Part
	namedOnly bool
	att       Attachment
	skipped   int
}

// NewWalker returns a walker over the children of root. When namedOnly
// is set, parts without a filename are not yielded. A non-multipart root
// has no attachments.
func NewWalker(root *Part, namedOnly bool) *Walker {
	w := &Walker{namedOnly: namedOnly}
	if root.IsMultipart() {
		w.stack = append(w.stack, root.Children)
	}
	return w
}

// Next advances to the next attachment. It returns false when the
// archive is exhausted.
func (w *Walker) Next() bool {
	for len(w.stack) > 0 {
		top := len(w.stack) - 1
		frame := w.stack[top]
		if len(frame) == 0 {
			w.stack = w.stack[:top]
			continue
		}
		part := frame[0]
		w.stack[top] = frame[1:]

		if part.IsMultipart() {
			if part.Subtype() == "alternative" {
				w.stack = append(w.stack, part.Children)
			}
			continue
		}
		if w.namedOnly && part.Filename == "" {
			continue
		}
		if part.BodyErr != nil {
			// Undecodable payload: the part vanishes from the sequence.
			w.skipped++
			continue
		}

		w.att = Attachment{
			Content:   part.Body,
			Filename:  part.Filename,
			MediaType: part.MediaType,
			Part:      part,
		}
		return true
	}
	return false
}

// Attachment returns the attachment reached by the last call to Next.
func (w *Walker) Attachment() Attachment {
	return w.att
}

// Skipped reports how many parts were dropped because their payload
// could not be decoded.
func (w *Walker) Skipped() int {
	return w.skipped
}
