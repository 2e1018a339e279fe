package filter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/sh4869221b/niconeon/internal/models"
)

/*
LEARNING: ORDERED BLOCK RULES

Evaluation order is fixed:
  1. NG user lookup (map membership, O(1))
  2. Regex filters, in insertion order, OR-ed together

A blocked user short-circuits before any regex runs, so a large regex list
costs nothing for comments that are already hidden.

The pipeline holds no lock. AppCore serializes every call.
*/

// ErrInvalidPattern is returned when a regex filter does not compile
var ErrInvalidPattern = errors.New("invalid regex")

type compiledFilter struct {
	raw      models.RegexFilter
	compiled *regexp.Regexp
}

// Pipeline decides whether a comment is hidden
type Pipeline struct {
	ngUsers map[string]struct{}
	filters []compiledFilter
}

// NewPipeline creates an empty pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		ngUsers: make(map[string]struct{}),
	}
}

// Compile validates a pattern without touching any state.
// Callers use it to reject a pattern before writing it to the store.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// Load seeds the pipeline from persisted state.
// It fails on the first pattern that does not compile and leaves the pipeline untouched.
func (p *Pipeline) Load(ngUsers []string, filters []models.RegexFilter) error {
	compiled := make([]compiledFilter, 0, len(filters))
	for _, f := range filters {
		re, err := Compile(f.Pattern)
		if err != nil {
			return fmt.Errorf("filter %d: %w", f.ID, err)
		}
		compiled = append(compiled, compiledFilter{raw: f, compiled: re})
	}

	users := make(map[string]struct{}, len(ngUsers))
	for _, u := range ngUsers {
		users[u] = struct{}{}
	}

	p.ngUsers = users
	p.filters = compiled
	return nil
}

// ShouldHide reports whether the comment is blocked by the current rules
func (p *Pipeline) ShouldHide(c *models.CommentEvent) bool {
	if _, blocked := p.ngUsers[c.UserID]; blocked {
		return true
	}
	for _, f := range p.filters {
		if f.compiled.MatchString(c.Text) {
			return true
		}
	}
	return false
}

// AddNgUser blocks a user. It returns true only when the user was not blocked before.
func (p *Pipeline) AddNgUser(userID string) bool {
	if _, ok := p.ngUsers[userID]; ok {
		return false
	}
	p.ngUsers[userID] = struct{}{}
	return true
}

// RemoveNgUser unblocks a user and reports whether it was blocked
func (p *Pipeline) RemoveNgUser(userID string) bool {
	if _, ok := p.ngUsers[userID]; !ok {
		return false
	}
	delete(p.ngUsers, userID)
	return true
}

// IsNgUser reports NG membership
func (p *Pipeline) IsNgUser(userID string) bool {
	_, ok := p.ngUsers[userID]
	return ok
}

// AddRegexFilter compiles and appends a filter.
// Nothing is appended when compilation fails.
func (p *Pipeline) AddRegexFilter(f models.RegexFilter) error {
	re, err := Compile(f.Pattern)
	if err != nil {
		return err
	}
	p.AddCompiled(f, re)
	return nil
}

// AddCompiled appends a filter whose pattern was already validated with Compile
func (p *Pipeline) AddCompiled(f models.RegexFilter, re *regexp.Regexp) {
	p.filters = append(p.filters, compiledFilter{raw: f, compiled: re})
}

// RemoveRegexFilter drops the filter with the given id and reports whether it existed
func (p *Pipeline) RemoveRegexFilter(filterID int64) bool {
	for i, f := range p.filters {
		if f.raw.ID == filterID {
			p.filters = append(p.filters[:i:i], p.filters[i+1:]...)
			return true
		}
	}
	return false
}

// ListNgUsers returns the blocked users sorted lexicographically
func (p *Pipeline) ListNgUsers() []string {
	users := make([]string, 0, len(p.ngUsers))
	for u := range p.ngUsers {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// ListRegexFilters returns the filters in insertion order
func (p *Pipeline) ListRegexFilters() []models.RegexFilter {
	out := make([]models.RegexFilter, len(p.filters))
	for i, f := range p.filters {
		out[i] = f.raw
	}
	return out
}
