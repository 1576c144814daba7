package content

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

const (
	DateLayout     = "2006-01-02"
	wordsPerMinute = 200
)

var (
	frontMatterDelim = []byte("---")
	slugPattern      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Post is a rendered blog post
type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Summary     string    `json:"summary"`
	Tags        []string  `json:"tags"`
	Draft       bool      `json:"draft,omitempty"`
	ReadingTime int       `json:"reading_time_minutes"`
	HTML        string    `json:"html"`
	File        string    `json:"-"`
}

// Summary is the listing view of a post
type Summary struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Summary     string    `json:"summary"`
	Tags        []string  `json:"tags"`
	ReadingTime int       `json:"reading_time_minutes"`
}

// Listing returns the summary view of p
func (p *Post) Listing() Summary {
	return Summary{
		Slug:        p.Slug,
		Title:       p.Title,
		Date:        p.Date,
		Summary:     p.Summary,
		Tags:        p.Tags,
		ReadingTime: p.ReadingTime,
	}
}

type frontMatter struct {
	Title   string   `yaml:"title"`
	Date    string   `yaml:"date"`
	Slug    string   `yaml:"slug"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
	Draft   bool     `yaml:"draft"`
}

// newMarkdown returns the renderer used for posts. Raw HTML in posts is
// omitted because goldmark's unsafe mode stays off.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// ParsePost parses a markdown file with YAML front matter
func ParsePost(md goldmark.Markdown, filename string, source []byte) (*Post, error) {
	meta, body, err := splitFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return nil, fmt.Errorf("%s: invalid front matter: %w", filename, err)
	}

	if strings.TrimSpace(fm.Title) == "" {
		return nil, fmt.Errorf("%s: title is required", filename)
	}
	if fm.Date == "" {
		return nil, fmt.Errorf("%s: date is required", filename)
	}
	date, err := time.Parse(DateLayout, fm.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: date must be YYYY-MM-DD: %w", filename, err)
	}

	slug := fm.Slug
	if slug == "" {
		slug = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%s: invalid slug %q", filename, slug)
	}

	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("%s: render: %w", filename, err)
	}

	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}

	return &Post{
		Slug:        slug,
		Title:       strings.TrimSpace(fm.Title),
		Date:        date,
		Summary:     strings.TrimSpace(fm.Summary),
		Tags:        tags,
		Draft:       fm.Draft,
		ReadingTime: ReadingTime(body),
		HTML:        buf.String(),
		File:        filename,
	}, nil
}

// ReadingTime estimates minutes to read body, never less than one
func ReadingTime(body []byte) int {
	words := len(strings.Fields(string(body)))
	minutes := int(math.Round(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func splitFrontMatter(source []byte) ([]byte, []byte, error) {
	source = bytes.TrimPrefix(source, []byte("\xef\xbb\xbf"))
	lines := bytes.SplitAfter(source, []byte("\n"))
	if len(lines) == 0 || !bytes.Equal(bytes.TrimSpace(lines[0]), frontMatterDelim) {
		return nil, nil, fmt.Errorf("missing front matter")
	}

	offset := len(lines[0])
	for _, line := range lines[1:] {
		if bytes.Equal(bytes.TrimSpace(line), frontMatterDelim) {
			meta := source[len(lines[0]):offset]
			body := source[offset+len(line):]
			return meta, body, nil
		}
		offset += len(line)
	}
	return nil, nil, fmt.Errorf("unterminated front matter")
}
