package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html><body style="font-family:Helvetica,Arial,sans-serif;color:#1e1e1e;max-width:560px;margin:auto">
<h2 style="color:#142846">{{.Heading}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .ActionURL}}<p><a href="{{.ActionURL}}" style="background:#142846;color:#fff;padding:10px 16px;text-decoration:none;border-radius:4px">{{.ActionLabel}}</a></p>
{{end}}<p style="color:#777;font-size:12px">Halyard Advisory</p>
</body></html>
`))

type content struct {
	Heading     string
	Paragraphs  []string
	ActionURL   string
	ActionLabel string
}

func render(to, subject string, c content) (Message, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, c); err != nil {
		return Message{}, fmt.Errorf("render %q: %w", subject, err)
	}

	var text strings.Builder
	text.WriteString(c.Heading + "\n\n")
	for _, p := range c.Paragraphs {
		text.WriteString(p + "\n\n")
	}
	if c.ActionURL != "" {
		text.WriteString(c.ActionLabel + ": " + c.ActionURL + "\n\n")
	}
	text.WriteString("Halyard Advisory\n")

	return Message{To: to, Subject: subject, HTML: buf.String(), Text: text.String()}, nil
}

// ReportReady tells an assessment respondent their report can be downloaded
func ReportReady(to, name string, score int, tier, documentURL string) (Message, error) {
	return render(to, "Your AI readiness report is ready", content{
		Heading: fmt.Sprintf("Hi %s, your report is ready", name),
		Paragraphs: []string{
			fmt.Sprintf("You scored %d/100, placing you in the %s tier.", score, tier),
			"Your personalised report includes strengths, gaps and a 90-day plan.",
		},
		ActionURL:   documentURL,
		ActionLabel: "Download your report",
	})
}

// BookingConfirmed confirms a paid consultation
func BookingConfirmed(to, name string, slotStart time.Time, amountCents int64, currency string) (Message, error) {
	return render(to, "Your consultation is confirmed", content{
		Heading: fmt.Sprintf("Thanks %s, you're booked in", name),
		Paragraphs: []string{
			"Your consultation starts " + slotStart.UTC().Format("Monday 2 January 2006 at 15:04 MST") + ".",
			fmt.Sprintf("We received your payment of %s.", FormatAmount(amountCents, currency)),
			"A calendar invitation with joining details will follow from our scheduling system.",
		},
	})
}

// RequestReviewed tells a client the outcome of a request
func RequestReviewed(to, kind, title, decision, note, linkURL string) (Message, error) {
	paragraphs := []string{fmt.Sprintf("Your %s request \"%s\" was %s.", kind, title, decision)}
	if note != "" {
		paragraphs = append(paragraphs, "Reviewer note: "+note)
	}
	return render(to, fmt.Sprintf("Your %s request was %s", kind, decision), content{
		Heading:     "Request update",
		Paragraphs:  paragraphs,
		ActionURL:   linkURL,
		ActionLabel: "View in your portal",
	})
}

// FormatAmount renders minor currency units, e.g. 25000 usd as "USD 250.00"
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", strings.ToUpper(currency), cents/100, cents%100)
}
