package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "Helvetica"
	margin     = 20.0
	bodySize   = 11.0
	lineHeight = 5.5
)

var (
	linkPattern     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	emphasisPattern = regexp.MustCompile("(^|[^\\w])(\\*\\*|__|\\*|_|`)([^*_`]+?)(\\*\\*|__|\\*|_|`)($|[^\\w])")
	orderedPattern  = regexp.MustCompile(`^\d+[.)]\s+`)
)

type blockKind int

const (
	paragraph blockKind = iota
	heading1
	heading2
	heading3
	bullet
	numbered
)

type block struct {
	kind   blockKind
	text   string
	marker string
}

// Render lays out a markdown document as an A4 PDF with a title header and
// page-numbered footer. Headings, bullet and numbered lists and paragraphs
// are supported; inline markup is reduced to plain text.
func Render(title, markdown string, generatedAt time.Time) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetTitle(title, true)
	doc.SetCreator("Halyard", true)
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont(fontFamily, "I", 8)
		doc.SetTextColor(128, 128, 128)
		doc.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()

	doc.SetFont(fontFamily, "B", 20)
	doc.SetTextColor(20, 40, 70)
	doc.MultiCell(0, 10, tr(title), "", "L", false)
	doc.SetFont(fontFamily, "", 9)
	doc.SetTextColor(110, 110, 110)
	doc.CellFormat(0, 6, tr("Generated "+generatedAt.UTC().Format("2 January 2006")), "", 1, "L", false, 0, "")
	doc.SetDrawColor(20, 40, 70)
	pageWidth, _ := doc.GetPageSize()
	y := doc.GetY() + 2
	doc.Line(margin, y, pageWidth-margin, y)
	doc.Ln(6)

	for _, b := range parseBlocks(markdown) {
		// The report title is already on the page
		if b.kind == heading1 && strings.EqualFold(b.text, title) {
			continue
		}
		writeBlock(doc, tr, b)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBlock(doc *fpdf.Fpdf, tr func(string) string, b block) {
	doc.SetTextColor(30, 30, 30)
	switch b.kind {
	case heading1:
		doc.Ln(2)
		doc.SetFont(fontFamily, "B", 16)
		doc.MultiCell(0, 8, tr(b.text), "", "L", false)
		doc.Ln(1)
	case heading2:
		doc.Ln(2)
		doc.SetFont(fontFamily, "B", 13)
		doc.SetTextColor(20, 40, 70)
		doc.MultiCell(0, 7, tr(b.text), "", "L", false)
		doc.Ln(1)
	case heading3:
		doc.Ln(1)
		doc.SetFont(fontFamily, "B", bodySize)
		doc.MultiCell(0, 6, tr(b.text), "", "L", false)
	case bullet, numbered:
		doc.SetFont(fontFamily, "", bodySize)
		doc.SetX(margin + 3)
		doc.CellFormat(6, lineHeight, tr(b.marker), "", 0, "L", false, 0, "")
		doc.MultiCell(0, lineHeight, tr(b.text), "", "L", false)
		doc.Ln(1)
	default:
		doc.SetFont(fontFamily, "", bodySize)
		doc.MultiCell(0, lineHeight, tr(b.text), "", "J", false)
		doc.Ln(3)
	}
}

// parseBlocks splits markdown into the block kinds the renderer supports
func parseBlocks(markdown string) []block {
	var (
		blocks []block
		para   []string
	)
	flush := func() {
		if len(para) > 0 {
			blocks = append(blocks, block{kind: paragraph, text: StripInline(strings.Join(para, " "))})
			para = nil
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "### "):
			flush()
			blocks = append(blocks, block{kind: heading3, text: StripInline(line[4:])})
		case strings.HasPrefix(line, "## "):
			flush()
			blocks = append(blocks, block{kind: heading2, text: StripInline(line[3:])})
		case strings.HasPrefix(line, "# "):
			flush()
			blocks = append(blocks, block{kind: heading1, text: StripInline(line[2:])})
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			flush()
			blocks = append(blocks, block{kind: bullet, marker: "•", text: StripInline(line[2:])})
		case orderedPattern.MatchString(line):
			flush()
			marker := strings.TrimSpace(orderedPattern.FindString(line))
			blocks = append(blocks, block{kind: numbered, marker: marker, text: StripInline(line[len(orderedPattern.FindString(line)):])})
		default:
			para = append(para, line)
		}
	}
	flush()
	return blocks
}

// StripInline removes emphasis and code markers and flattens links to
// "text (url)".
func StripInline(s string) string {
	s = linkPattern.ReplaceAllString(s, "$1 ($2)")
	for {
		next := emphasisPattern.ReplaceAllString(s, "$1$3$5")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}
