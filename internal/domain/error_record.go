package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Sentinel is stored in place of absent or blank values.
const Sentinel = "NA"

// DefaultTemplateID is the notification template used when none is configured.
const DefaultTemplateID = "ERR_MAIL_01"

// Field bounds in characters (runes).
const (
	MaxRequestTypeLen      = 100
	MaxDescriptionLen      = 500
	MaxOriginSystemLen     = 100
	MaxSubSystemLen        = 100
	MaxQuoteIDLen          = 50
	MaxScenarioIDLen       = 50
	MaxUserIDLen           = 50
	MaxStatusLen           = 50
	MaxErrorDescriptionLen = 2000
	MaxIssueStatusLen      = 20
	MaxTemplateIDLen       = 50
	MaxAssignedUserLen     = 50
	MaxMailAddressLen      = 255
)

// IssueStatus is the triage state of a captured failure.
type IssueStatus string

const (
	IssueStatusNew        IssueStatus = "NEW"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusResolved   IssueStatus = "RESOLVED"
	IssueStatusIgnored    IssueStatus = "IGNORED"
)

func (s IssueStatus) String() string { return string(s) }

func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueStatusNew, IssueStatusInProgress, IssueStatusResolved, IssueStatusIgnored:
		return true
	}
	return false
}

func ParseIssueStatus(s string) (IssueStatus, error) {
	st := IssueStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid issue status %q", ErrValidation, s)
	}
	return st, nil
}

// ErrorRecord is one captured failure event.
type ErrorRecord struct {
	ID                     string
	RequestType            string
	Description            string
	OriginSystem           string
	SubSystem              string
	QuoteID                string
	ScenarioID             string
	UserID                 string
	Status                 string
	InputData              string
	OutputData             string
	ErrorDescription       string
	ErrorStack             string
	IssueStatus            IssueStatus
	IsMailRequested        bool
	NotificationTemplateID string
	AssignedUser           string
	MailAddress            string
	CreatedAt              time.Time

	// Cause is the fault being reported. It is rendered into ErrorStack and
	// never persisted on its own.
	Cause error
}

// Normalize returns a copy with every field defaulted, trimmed and truncated.
// The creation-owned fields are overwritten regardless of caller values.
func (r ErrorRecord) Normalize(templateID string) ErrorRecord {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		templateID = DefaultTemplateID
	}

	out := r
	out.RequestType = Bounded(r.RequestType, MaxRequestTypeLen)
	out.Description = Bounded(r.Description, MaxDescriptionLen)
	out.OriginSystem = Bounded(r.OriginSystem, MaxOriginSystemLen)
	out.SubSystem = Bounded(r.SubSystem, MaxSubSystemLen)
	out.QuoteID = Bounded(r.QuoteID, MaxQuoteIDLen)
	out.ScenarioID = Bounded(r.ScenarioID, MaxScenarioIDLen)
	out.UserID = Bounded(r.UserID, MaxUserIDLen)
	out.Status = Bounded(r.Status, MaxStatusLen)
	out.ErrorDescription = Bounded(r.ErrorDescription, MaxErrorDescriptionLen)
	out.MailAddress = Bounded(r.MailAddress, MaxMailAddressLen)

	out.InputData = Unbounded(r.InputData)
	out.OutputData = Unbounded(r.OutputData)
	out.ErrorStack = Unbounded(r.ErrorStack)

	out.IssueStatus = IssueStatusNew
	out.NotificationTemplateID = Bounded(templateID, MaxTemplateIDLen)
	out.AssignedUser = Sentinel

	return out
}

// ShouldNotify reports whether a mail must be attempted for this record.
func (r ErrorRecord) ShouldNotify() bool {
	if !r.IsMailRequested {
		return false
	}
	return !IsSentinel(r.MailAddress)
}

// Bounded sanitizes and trims value and keeps at most limit runes. Blank
// values become the sentinel.
func Bounded(value string, limit int) string {
	trimmed := strings.TrimSpace(sanitize(value))
	if trimmed == "" {
		return Sentinel
	}
	if limit <= 0 {
		return trimmed
	}

	runes := []rune(trimmed)
	if len(runes) <= limit {
		return trimmed
	}
	// A cut can end on whitespace; trimming it keeps Normalize idempotent.
	return strings.TrimRightFunc(string(runes[:limit]), unicode.IsSpace)
}

// Unbounded keeps large-object values verbatim apart from sanitizing; blank
// values become the sentinel.
func Unbounded(value string) string {
	value = sanitize(value)
	if strings.TrimSpace(value) == "" {
		return Sentinel
	}
	return value
}

// sanitize makes value storable as postgres text: invalid UTF-8 sequences
// become U+FFFD and NUL bytes are dropped.
func sanitize(value string) string {
	value = strings.ToValidUTF8(value, "\uFFFD")
	return strings.ReplaceAll(value, "\x00", "")
}

// IsSentinel reports whether value is blank or the sentinel.
func IsSentinel(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || strings.EqualFold(trimmed, Sentinel)
}

// OrSentinel returns value unless it is blank.
func OrSentinel(value string) string {
	if strings.TrimSpace(value) == "" {
		return Sentinel
	}
	return value
}
