// Package content loads the markdown blog.
//
// Each post is a *.md file whose YAML front matter, delimited by --- lines,
// carries the title and date (YYYY-MM-DD) and optionally slug, summary,
// tags and draft. Posts are rendered with goldmark (GFM, typographer,
// heading IDs) and reloaded on change through fsnotify.
package content
