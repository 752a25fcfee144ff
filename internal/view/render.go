package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vovakirdan/figaro/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns channel payloads into HTML.
type Renderer struct {
	tmpl           *template.Template
	now            func() time.Time
	rowSize        int
	maxTextChars   int
	maxMessages    int
	pattern        string
	channelFilter  *regexp.Regexp
	sortByActivity bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock overrides the clock used for relative timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithRowSize sets the number of cards per row.
func WithRowSize(size int) Option {
	return func(r *Renderer) { r.rowSize = size }
}

// WithMaxTextChars limits how many characters of each message are shown.
// Zero means no limit.
func WithMaxTextChars(n int) Option {
	return func(r *Renderer) { r.maxTextChars = n }
}

// WithMaxMessages keeps only the n most recent messages of each channel.
// Zero means no limit.
func WithMaxMessages(n int) Option {
	return func(r *Renderer) { r.maxMessages = n }
}

// WithChannelPattern shows only channels whose name matches pattern.
// An empty pattern shows every channel.
func WithChannelPattern(pattern string) Option {
	return func(r *Renderer) { r.pattern = pattern }
}

// WithSortByActivity orders each section so the most recently active
// channel comes first.
func WithSortByActivity(enabled bool) Option {
	return func(r *Renderer) { r.sortByActivity = enabled }
}

// PageData feeds the bootstrap page.
type PageData struct {
	Title      string
	Frame      template.HTML
	WSPath     string
	StatusPath string
}

type sectionView struct {
	Key   string
	Title string
	Rows  [][]model.Channel
}

type frameView struct {
	Sections []sectionView
}

// New parses the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		now:     time.Now,
		rowSize: DefaultRowSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.pattern != "" {
		re, err := regexp.Compile(r.pattern)
		if err != nil {
			return nil, fmt.Errorf("compile channel pattern: %w", err)
		}
		r.channelFilter = re
	}

	tmpl, err := template.New("figaro").Funcs(template.FuncMap{
		"fromNow":  r.fromNow,
		"absTime":  absTime,
		"truncate": r.truncate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Frame renders every section of the pair as rows of cards.
func (r *Renderer) Frame(pair model.ChannelPair) (template.HTML, error) {
	sections := pair.Sections()
	data := frameView{Sections: make([]sectionView, 0, len(sections))}
	for _, s := range sections {
		data.Sections = append(data.Sections, sectionView{
			Key:   s.Key,
			Title: s.Title,
			Rows:  Partition(r.prepare(s.Channels), r.rowSize),
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "frame", data); err != nil {
		return "", fmt.Errorf("render frame: %w", err)
	}
	// Output of a parsed html/template is already escaped.
	return template.HTML(buf.String()), nil
}

// Page renders the full bootstrap document.
func (r *Renderer) Page(data PageData) ([]byte, error) {
	if data.Title == "" {
		data.Title = "Figaro"
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) fromNow(m model.Message) string {
	t, ok := m.Time()
	if !ok {
		return m.Timestamp
	}
	return humanize.RelTime(t, r.now(), "ago", "from now")
}

func absTime(m model.Message) string {
	t, ok := m.Time()
	if !ok {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (r *Renderer) truncate(text string) string {
	if r.maxTextChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= r.maxTextChars {
		return text
	}
	return string(runes[:r.maxTextChars]) + "…"
}
