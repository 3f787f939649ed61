// Package core holds the pipeline execution handle, the status vocabulary
// shared by every remote and the domain error taxonomy.
package core

import "strings"

// Category is the canonical bucket a remote status string maps onto.
type Category string

const (
	CategoryInProgress Category = "IN_PROGRESS"
	CategorySuccess    Category = "SUCCESS"
	CategoryFailed     Category = "FAILED"
	CategoryUnstable   Category = "UNSTABLE"
	CategoryCancelled  Category = "CANCELLED"
	CategoryUnknown    Category = "UNKNOWN"
)

// DefaultSuccessStatuses is the allow-list used when a command does not configure one.
const DefaultSuccessStatuses = string(CategorySuccess)

// AllCategories returns every category.
func AllCategories() []Category {
	return []Category{
		CategoryInProgress,
		CategorySuccess,
		CategoryFailed,
		CategoryUnstable,
		CategoryCancelled,
		CategoryUnknown,
	}
}

// statusCategories holds lower-cased vocabularies of GitHub Actions, GitLab CI
// and the canonical category names themselves.
var statusCategories = map[string]Category{
	// canonical
	"in_progress": CategoryInProgress,
	"success":     CategorySuccess,
	"failed":      CategoryFailed,
	"unstable":    CategoryUnstable,
	"cancelled":   CategoryCancelled,
	"unknown":     CategoryUnknown,
	"not_started": CategoryInProgress,

	// GitHub run status (before completion)
	"queued":    CategoryInProgress,
	"requested": CategoryInProgress,
	"waiting":   CategoryInProgress,
	"pending":   CategoryInProgress,

	// GitHub run conclusion
	"failure":         CategoryFailed,
	"timed_out":       CategoryFailed,
	"startup_failure": CategoryFailed,
	"action_required": CategoryFailed,
	"neutral":         CategoryUnstable,
	"skipped":         CategoryCancelled,
	"stale":           CategoryCancelled,

	// GitLab pipeline status
	"created":              CategoryInProgress,
	"waiting_for_resource": CategoryInProgress,
	"preparing":            CategoryInProgress,
	"running":              CategoryInProgress,
	"scheduled":            CategoryInProgress,
	"canceling":            CategoryInProgress,
	"canceled":             CategoryCancelled,
	"aborted":              CategoryCancelled,
}

// Classify maps a remote status string to its category. The mapping is total:
// anything unrecognized is UNKNOWN. "manual" (a GitLab pipeline blocked on a
// manual job) is UNKNOWN because it never progresses on its own.
func Classify(rawStatus string) Category {
	key := strings.ToLower(strings.TrimSpace(rawStatus))
	if cat, ok := statusCategories[key]; ok {
		return cat
	}
	return CategoryUnknown
}

// IsTerminal reports whether polling should stop for the status.
func IsTerminal(rawStatus string) bool {
	return Classify(rawStatus) != CategoryInProgress
}

// IsTerminal reports whether the category ends polling.
func (c Category) IsTerminal() bool {
	return c != CategoryInProgress
}

// ParseSuccessStatuses splits a comma-separated allow-list. Empty input yields
// the default list.
func ParseSuccessStatuses(list string) []string {
	statuses := make([]string, 0, 2)
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, s)
		}
	}
	if len(statuses) == 0 {
		return []string{DefaultSuccessStatuses}
	}
	return statuses
}

// MatchesSuccess reports whether rawStatus is accepted by the comma-separated
// allow-list. Entries are trimmed and compared case-sensitively against the
// trimmed raw status and against its canonical category name, so "unstable"
// from a remote matches an "UNSTABLE" entry.
func MatchesSuccess(rawStatus, successList string) bool {
	return MatchesAny(rawStatus, ParseSuccessStatuses(successList))
}

// MatchesAny is MatchesSuccess over an already parsed allow-list.
func MatchesAny(rawStatus string, statuses []string) bool {
	trimmed := strings.TrimSpace(rawStatus)
	category := string(Classify(trimmed))
	for _, s := range statuses {
		if s == trimmed || s == category {
			return true
		}
	}
	return false
}
