// Package classify derives a project, a priority and an optional task title
// from free-text messages using ordered keyword and regex rules.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/openclaw/mission-control/store"
)

// MaxTitleLen caps extracted titles, in characters.
const MaxTitleLen = 200

// minTitleLen is the exclusive lower bound on an extracted title's length.
const minTitleLen = 3

// sentenceCutAfter is the position a sentence end must lie beyond before the
// title is truncated there.
const sentenceCutAfter = 10

var (
	urgentRe   = regexp.MustCompile(`(urgent|asap|critical|immediately|now|emergency)`)
	deferralRe = regexp.MustCompile(`(eventually|someday|maybe|low priority|when you can)`)
	leadingRe  = regexp.MustCompile(`(?i)^(a |the |to |for )`)
	sentenceRe = regexp.MustCompile(`[.!?\n]`)
)

// Triggers are the explicit command phrases that may create a task, in
// match order.
var Triggers = []string{
	"add task",
	"create task",
	"new task",
	"todo:",
	"task:",
	"remind me to",
	"reminder:",
	"add to task",
	"create a task",
	"make a task",
	"add to do",
	"add todo",
}

// Rule maps a lower-case keyword to a project id.
type Rule struct {
	Keyword   string
	ProjectID int64
}

// DefaultRules is the built-in project table.
var DefaultRules = []Rule{
	{Keyword: "mission control", ProjectID: 1},
	{Keyword: "moto", ProjectID: 2},
	{Keyword: "openclaw", ProjectID: 3},
	{Keyword: "personal", ProjectID: 4},
}

// Result is the full classification of one message.
type Result struct {
	ProjectID *int64         `json:"project_id"`
	Priority  store.Priority `json:"priority"`
	Title     *string        `json:"title"`
}

// Classifier evaluates an ordered rule list. The zero value is not usable;
// build one with New.
type Classifier struct {
	rules     []Rule
	projectRe *regexp.Regexp // trailing "to <project>" clause
}

// New returns a classifier over rules. Empty rules fall back to DefaultRules.
func New(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		c.rules = append(c.rules, Rule{Keyword: kw, ProjectID: r.ProjectID})
		names = append(names, regexp.QuoteMeta(kw))
	}
	if len(names) > 0 {
		c.projectRe = regexp.MustCompile(`(?i)to (` + strings.Join(names, "|") + `)`)
	}
	return c
}

// Default is a classifier over DefaultRules.
var Default = New(nil)

// Rules returns a copy of the classifier's rule list.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// DetectProject returns the project of the first rule whose keyword occurs
// in message, or nil.
func (c *Classifier) DetectProject(message string) *int64 {
	lower := strings.ToLower(message)
	for _, r := range c.rules {
		if strings.Contains(lower, r.Keyword) {
			id := r.ProjectID
			return &id
		}
	}
	return nil
}

// DetectPriority returns high for urgency terms, low for deferral terms and
// medium otherwise. Urgency wins when both appear.
func DetectPriority(message string) store.Priority {
	lower := strings.ToLower(message)
	switch {
	case urgentRe.MatchString(lower):
		return store.PriorityHigh
	case deferralRe.MatchString(lower):
		return store.PriorityLow
	}
	return store.PriorityMedium
}

// ExtractTaskTitle returns the title following an explicit trigger phrase,
// or nil when the message is ordinary conversation. A trigger whose
// remainder is too short falls through to the next trigger.
func (c *Classifier) ExtractTaskTitle(message string) *string {
	lower := strings.ToLower(message)
	// Lowering can change byte lengths outside ASCII; slice the lowered text
	// then, so trigger offsets stay aligned.
	source := message
	if len(lower) != len(message) {
		source = lower
	}

	for _, trigger := range Triggers {
		idx := strings.Index(lower, trigger)
		if idx < 0 {
			continue
		}
		title := strings.TrimSpace(source[idx+len(trigger):])
		title = leadingRe.ReplaceAllString(title, "")

		if loc := sentenceRe.FindStringIndex(title); loc != nil && utf8.RuneCountInString(title[:loc[0]]) > sentenceCutAfter {
			title = strings.TrimSpace(title[:loc[0]])
		}
		if c.projectRe != nil {
			if loc := c.projectRe.FindStringIndex(title); loc != nil {
				title = strings.TrimSpace(title[:loc[0]])
			}
		}

		if utf8.RuneCountInString(title) > minTitleLen {
			title = truncate(title, MaxTitleLen)
			return &title
		}
	}
	return nil
}

// Classify runs all three detectors.
func (c *Classifier) Classify(message string) Result {
	return Result{
		ProjectID: c.DetectProject(message),
		Priority:  DetectPriority(message),
		Title:     c.ExtractTaskTitle(message),
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
