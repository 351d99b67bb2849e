package model

// RunID identifies one asynchronous Apex test-run invocation. Salesforce
// issues ids in a 15-character case-sensitive form and an 18-character
// case-safe form; the first 14 characters are shared between the two and act
// as the correlation key for "same job" comparisons.
type RunID string

const (
	// RunIDShortLength is the case-sensitive id form.
	RunIDShortLength = 15
	// RunIDLongLength is the case-safe id form with a 3-character suffix.
	RunIDLongLength = 18
	// CorrelationPrefixLength is the shared prefix used to correlate the two forms.
	CorrelationPrefixLength = 14
)

// Valid returns true when the id has one of the two accepted lengths.
func (id RunID) Valid() bool {
	return len(id) == RunIDShortLength || len(id) == RunIDLongLength
}

// CorrelationKey returns the leading prefix used to equate the short and long
// id forms. Returns an empty string for ids shorter than the prefix.
func (id RunID) CorrelationKey() string {
	if len(id) < CorrelationPrefixLength {
		return ""
	}
	return string(id[:CorrelationPrefixLength])
}

// Matches reports whether two ids refer to the same job. The comparison is a
// case-sensitive match of the correlation prefix; no normalization between
// the 15- and 18-character forms is attempted.
func (id RunID) Matches(other RunID) bool {
	return id.Valid() && other.Valid() && id.CorrelationKey() == other.CorrelationKey()
}

// String returns the string representation of the run id.
func (id RunID) String() string {
	return string(id)
}

// IsValidRunID validates a candidate run id against the subscribed id of the
// active session. When no subscribed id is known yet (empty), any
// length-valid candidate is accepted; this covers first-contact correlation
// before the start action has resolved.
func IsValidRunID(candidate, subscribed RunID) bool {
	if !candidate.Valid() {
		return false
	}
	if subscribed == "" {
		return true
	}
	return candidate.Matches(subscribed)
}
