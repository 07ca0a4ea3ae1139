// Package model defines core data structures and types for the syndication service.
package model

import (
	"strings"
	"time"
)

type PostID string

// Post is the view of a blog post carried by a webhook event. The HTML
// body is authoritative; Markdown is only set by blogs that deliver raw
// markdown and is rendered before link extraction.
type Post struct {
	ID PostID

	Title string
	Slug  string
	URL   string

	HTML     string
	Markdown []byte

	Tags       []Tag
	Visibility string
	Featured   bool
	Status     string

	PublishedAt time.Time
	UpdatedAt   time.Time
}

type Tag struct {
	Name string
	Slug string
}

// HasTag reports whether the post carries the given tag, matching
// case-insensitively against both slug and name.
func (p *Post) HasTag(slug string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t.Slug, slug) || strings.EqualFold(t.Name, slug) {
			return true
		}
	}
	return false
}

// TagSlugs returns the post's tag slugs in declaration order.
func (p *Post) TagSlugs() []string {
	slugs := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		slugs = append(slugs, t.Slug)
	}
	return slugs
}
