package content

import (
	"encoding/xml"
	"strings"
	"time"
)

const feedTitle = "Halyard Advisory"

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Feed renders the published posts as an RSS 2.0 document
func (l *Library) Feed(siteURL string) ([]byte, error) {
	base := strings.TrimRight(siteURL, "/")
	posts := l.published()

	channel := rssChannel{
		Title:       feedTitle,
		Link:        base + "/blog",
		Description: "Notes on practical AI adoption from Halyard Advisory",
		Items:       make([]rssItem, 0, len(posts)),
	}
	if len(posts) > 0 {
		channel.LastBuildDate = posts[0].Date.Format(time.RFC1123Z)
	}

	for _, p := range posts {
		link := base + "/blog/" + p.Slug
		channel.Items = append(channel.Items, rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        rssGUID{IsPermaLink: "true", Value: link},
			PubDate:     p.Date.Format(time.RFC1123Z),
			Description: p.Summary,
			Categories:  p.Tags,
		})
	}

	out, err := xml.MarshalIndent(rss{Version: "2.0", Channel: channel}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
