package factory

// RuleOutcome is the tagged verdict of one authorization rule. The zero
// value allows; denial carries an optional message.
type RuleOutcome struct {
	denied  bool
	message string
}

// Allow returns the allowing outcome.
func Allow() RuleOutcome {
	return RuleOutcome{}
}

// Deny returns a denying outcome with the supplied message. An empty message
// still allows, preserving the legacy string convention where an empty
// string means "no objection"; rules that need a silent denial use
// OutcomeFromBool(false).
func Deny(message string) RuleOutcome {
	if message == "" {
		return RuleOutcome{}
	}
	return RuleOutcome{denied: true, message: message}
}

// OutcomeFromBool maps the boolean rule convention: false denies with no
// message, true allows.
func OutcomeFromBool(allowed bool) RuleOutcome {
	return RuleOutcome{denied: !allowed}
}

// OutcomeFromString maps the string rule convention: any non-empty value
// denies with that value as the message, the empty string allows.
func OutcomeFromString(message string) RuleOutcome {
	return RuleOutcome{denied: message != "", message: message}
}

// Allowed reports whether the rule allowed the operation.
func (o RuleOutcome) Allowed() bool { return !o.denied }

// Message returns the denial message. Empty for allows and for boolean
// denials.
func (o RuleOutcome) Message() string { return o.message }

// Authorized is the verdict of a probe-only authorization check.
type Authorized struct {
	HasAccess bool   `json:"hasAccess"`
	Message   string `json:"message,omitempty"`
}

// AuthorizedResult couples an authorization verdict with the value the
// operation produced. Result is meaningful only when HasAccess is true and
// the call succeeded.
type AuthorizedResult[T any] struct {
	HasAccess bool   `json:"hasAccess"`
	Message   string `json:"message,omitempty"`
	Result    T      `json:"result,omitempty"`
}

// Denied builds the denial form of an AuthorizedResult from a probe verdict.
func Denied[T any](verdict Authorized) AuthorizedResult[T] {
	return AuthorizedResult[T]{HasAccess: false, Message: verdict.Message}
}
