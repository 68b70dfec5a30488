// Package dom applies translation documents to HTML pages.
//
// A Document wraps a parsed page and the frame scheduler writes are
// deferred to. A Synchronizer scans the page for elements marked with
// data-i18n, resolves their keys against the active language and writes
// only the values that changed since the previous pass.
package dom

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// FrameScheduler defers a callback to the next frame boundary.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// FrameQueue is a FrameScheduler whose frame boundary is an explicit
// Flush. Callbacks requested between flushes run together.
type FrameQueue struct {
	mu      sync.Mutex
	pending []func()
}

// NewFrameQueue creates an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// RequestFrame queues fn for the next Flush.
func (q *FrameQueue) RequestFrame(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, fn)
}

// Flush runs every queued callback and returns how many ran. Callbacks
// queued while flushing wait for the next Flush.
func (q *FrameQueue) Flush() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending returns the number of queued callbacks.
func (q *FrameQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// flusher is implemented by schedulers whose frames can be forced.
type flusher interface {
	Flush() int
}

// Document is an HTML page the synchronizer writes into. Access to the
// node tree is serialized.
type Document struct {
	mu     sync.Mutex
	doc    *goquery.Document
	frames FrameScheduler
}

// Parse parses an HTML page with a FrameQueue scheduler.
func Parse(content string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	return NewDocument(doc, NewFrameQueue()), nil
}

// NewDocument wraps a parsed page. A nil scheduler runs callbacks
// immediately.
func NewDocument(doc *goquery.Document, frames FrameScheduler) *Document {
	if frames == nil {
		frames = immediate{}
	}
	return &Document{doc: doc, frames: frames}
}

// Frames returns the document's scheduler.
func (d *Document) Frames() FrameScheduler {
	return d.frames
}

// Flush runs pending frame callbacks when the scheduler supports it.
func (d *Document) Flush() int {
	if f, ok := d.frames.(flusher); ok {
		return f.Flush()
	}
	return 0
}

// Render flushes pending writes and serializes the page.
func (d *Document) Render() (string, error) {
	d.Flush()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

// Title returns the text of the <title> element.
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find("title").First().Text()
}

// Find returns the current selection for selector. The selection must not
// be mutated outside the synchronizer.
func (d *Document) Find(selector string) *goquery.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(selector)
}

// Attr returns an attribute of the <html> element.
func (d *Document) Attr(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find("html").First().Attr(name)
}

// do runs fn with the node tree locked.
func (d *Document) do(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc)
}

type immediate struct{}

func (immediate) RequestFrame(fn func()) { fn() }
