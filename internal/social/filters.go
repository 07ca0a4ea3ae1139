package social

import (
	"slices"

	"github.com/debemdeboas/posse/internal/config"
	"github.com/debemdeboas/posse/internal/model"
)

// Filters decide whether a post is syndicated to a given account.
// Empty filters match every post. Criteria combine with AND; within the
// tags list any tag matches, and exclude_tags takes precedence.
type Filters struct {
	cfg config.FiltersConfig
}

func NewFilters(cfg config.FiltersConfig) Filters {
	return Filters{cfg: cfg}
}

func (f Filters) Match(post *model.Post) bool {
	slugs := post.TagSlugs()

	for _, tag := range f.cfg.ExcludeTags {
		if slices.Contains(slugs, tag) {
			return false
		}
	}

	if len(f.cfg.Tags) > 0 {
		matched := false
		for _, tag := range f.cfg.Tags {
			if slices.Contains(slugs, tag) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.cfg.Visibility) > 0 && !slices.Contains(f.cfg.Visibility, post.Visibility) {
		return false
	}

	if f.cfg.Featured != nil && post.Featured != *f.cfg.Featured {
		return false
	}

	if len(f.cfg.Status) > 0 && !slices.Contains(f.cfg.Status, post.Status) {
		return false
	}

	return true
}
