package dom

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func scanPage(t *testing.T, page string) []*Binding {
	t.Helper()
	d, err := Parse(page)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	bindings, _ := d.Bindings()
	return bindings
}

func TestBindings_TitleKey(t *testing.T) {
	d, err := Parse(`<html data-i18n-title="app.title"><head><title>x</title></head><body></body></html>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	bindings, titleKey := d.Bindings()
	if len(bindings) != 0 {
		t.Errorf("Expected no bindings, got %d", len(bindings))
	}
	if titleKey != "app.title" {
		t.Errorf("titleKey = %q, want app.title", titleKey)
	}
}

func TestScan_KeysAndParams(t *testing.T) {
	bindings := scanPage(t, `<body>
		<h1 data-i18n="app.title">Title</h1>
		<span data-i18n="params.welcome" data-i18n-param-name="Sam" data-i18n-param-count="3">Welcome</span>
	</body>`)

	if len(bindings) != 2 {
		t.Fatalf("Expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].Key != "app.title" || bindings[0].Params != nil {
		t.Errorf("unexpected first binding: %+v", bindings[0])
	}
	p := bindings[1].Params
	if p["name"] != "Sam" || p["count"] != "3" {
		t.Errorf("Params = %v", p)
	}
}

func TestScan_Targets(t *testing.T) {
	bindings := scanPage(t, `<html><head>
		<meta name="description" data-i18n="meta.description">
	</head><body>
		<p data-i18n="a">text</p>
		<input type="text" data-i18n="b">
		<input type="email" data-i18n="c" data-i18n-attr="placeholder">
		<input data-i18n="d">
		<input type="submit" data-i18n="e">
		<input type="checkbox" data-i18n="f">
		<img src="x.png" data-i18n="g">
		<a href="#" data-i18n="h" data-i18n-target="title">link</a>
	</body></html>`)

	want := map[string]string{
		"meta.description": "@content",
		"a":                "text",
		"b":                "@value",
		"c":                "@placeholder",
		"d":                "@value",
		"e":                "@value",
		"f":                "none",
		"g":                "@alt",
		"h":                "@title",
	}
	if len(bindings) != len(want) {
		t.Fatalf("Expected %d bindings, got %d", len(want), len(bindings))
	}
	for _, b := range bindings {
		if got := b.Target.String(); got != want[b.Key] {
			t.Errorf("target of %q = %s, want %s", b.Key, got, want[b.Key])
		}
	}
}

func TestElementID(t *testing.T) {
	bindings := scanPage(t, `<body>
		<h1 id="heading" data-i18n="a">x</h1>
		<p data-i18n-id="intro" data-i18n="b">x</p>
		<div class="card  wide"><p>first</p><p data-i18n="c">second</p></div>
		<section id="result"><div><span data-i18n="d">x</span></div></section>
	</body>`)

	want := []string{
		"heading",
		"intro",
		"div.card.wide:nth-child(3) > p:nth-child(2)",
		"section#result > div:nth-child(1) > span:nth-child(1)",
	}
	for i, b := range bindings {
		if b.ID != want[i] {
			t.Errorf("ID of %q = %q, want %q", b.Key, b.ID, want[i])
		}
	}
}

func TestWrite(t *testing.T) {
	d, _ := Parse(`<body><p data-i18n="a">old <b>bold</b></p><img data-i18n="b" alt="old"></body>`)
	var bindings []*Binding
	d.do(func(doc *goquery.Document) {
		bindings, _ = scan(doc)
		write(bindings[0], "new <text>")
		write(bindings[1], "picture")
	})

	if got := d.Find("p").Text(); got != "new <text>" {
		t.Errorf("text = %q", got)
	}
	if d.Find("p b").Length() != 0 {
		t.Error("children should be replaced")
	}
	if alt, _ := d.Find("img").Attr("alt"); alt != "picture" {
		t.Errorf("alt = %q", alt)
	}
}

func TestFrameQueue(t *testing.T) {
	q := NewFrameQueue()
	var ran []int
	q.RequestFrame(func() { ran = append(ran, 1) })
	q.RequestFrame(func() {
		ran = append(ran, 2)
		q.RequestFrame(func() { ran = append(ran, 3) })
	})

	if q.Pending() != 2 {
		t.Errorf("Pending = %d", q.Pending())
	}
	if n := q.Flush(); n != 2 {
		t.Errorf("Flush ran %d", n)
	}
	if len(ran) != 2 {
		t.Errorf("callbacks queued during a flush should wait, ran %v", ran)
	}
	q.Flush()
	if len(ran) != 3 {
		t.Errorf("ran %v", ran)
	}
}
