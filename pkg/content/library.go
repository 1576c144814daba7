package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
)

const reloadDelay = 200 * time.Millisecond

// Library holds the parsed blog posts of a content directory
type Library struct {
	dir    string
	md     goldmark.Markdown
	logger logrus.FieldLogger

	mu     sync.RWMutex
	posts  []*Post
	bySlug map[string]*Post
}

// NewLibrary creates an empty library for dir. Call Load to populate it.
func NewLibrary(dir string, logger logrus.FieldLogger) *Library {
	return &Library{
		dir:    dir,
		md:     newMarkdown(),
		logger: logger.WithField("component", "content"),
		bySlug: map[string]*Post{},
	}
}

// Dir returns the content directory
func (l *Library) Dir() string {
	return l.dir
}

// Parse reads and parses every post in the directory without touching the
// loaded set. All file errors are returned together.
func (l *Library) Parse() ([]*Post, error) {
	files, err := filepath.Glob(filepath.Join(l.dir, "*.md"))
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(l.dir); statErr != nil {
		return nil, fmt.Errorf("content directory: %w", statErr)
	}

	var errs []error
	posts := make([]*Post, 0, len(files))
	seen := map[string]string{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		post, err := ParsePost(l.md, filepath.Base(file), data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if other, dup := seen[post.Slug]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate slug %q (also in %s)", post.File, post.Slug, other))
			continue
		}
		seen[post.Slug] = post.File
		posts = append(posts, post)
	}

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})
	return posts, errors.Join(errs...)
}

// Load replaces the loaded posts. On error the previous posts are kept.
func (l *Library) Load() error {
	posts, err := l.Parse()
	if err != nil {
		return err
	}

	bySlug := make(map[string]*Post, len(posts))
	for _, p := range posts {
		bySlug[p.Slug] = p
	}

	l.mu.Lock()
	l.posts = posts
	l.bySlug = bySlug
	l.mu.Unlock()

	l.logger.WithField("posts", len(posts)).Info("blog posts loaded")
	return nil
}

// List returns published posts, newest first
func (l *Library) List() []Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Summary, 0, len(l.posts))
	for _, p := range l.posts {
		if p.Draft {
			continue
		}
		out = append(out, p.Listing())
	}
	return out
}

// Get returns a post by slug. Drafts are only returned with includeDrafts.
func (l *Library) Get(slug string, includeDrafts bool) (*Post, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.bySlug[slug]
	if !ok || (p.Draft && !includeDrafts) {
		return nil, false
	}
	return p, true
}

// published returns the non-draft posts, newest first
func (l *Library) published() []*Post {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Post, 0, len(l.posts))
	for _, p := range l.posts {
		if !p.Draft {
			out = append(out, p)
		}
	}
	return out
}

// Watch reloads the library whenever a markdown file in the directory is
// created, written, removed or renamed. It blocks until ctx is done.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Editors emit bursts of events for one save
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDelay)
			reload = timer.C
		case <-reload:
			reload = nil
			if err := l.Load(); err != nil {
				l.logger.WithError(err).Error("blog reload failed, keeping previous posts")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.WithError(err).Warn("content watcher error")
		}
	}
}
