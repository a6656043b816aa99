package factory

import (
	"context"
	"fmt"
)

// RuleSet accumulates the authorization rules for one entity type in
// declaration order. Registration happens once at startup; the set must not
// be mutated after an Evaluator is built from it.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet constructs an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// Add appends a rule, preserving declaration order. Nil rules are ignored.
func (s *RuleSet) Add(rules ...Rule) *RuleSet {
	for _, rule := range rules {
		if rule != nil {
			s.rules = append(s.rules, rule)
		}
	}
	return s
}

// Len returns the number of registered rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// Evaluator runs the rules applicable to an operation and combines their
// verdicts with AND semantics.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator builds an evaluator over a snapshot of the rule set.
func NewEvaluator(set *RuleSet) *Evaluator {
	if set == nil {
		return &Evaluator{}
	}
	rules := make([]Rule, len(set.rules))
	copy(rules, set.rules)
	return &Evaluator{rules: rules}
}

// Authorize evaluates every applicable rule in declaration order, short
// circuiting on the first denial. A rule applies when its operation mask
// intersects op and its parameter signature, if it declares one, matches
// params. The combined verdict's message is the first denying rule's
// message, empty for a boolean denial.
//
// Cancellation observed before or between rules aborts with the context
// error, regardless of how many rules apply; the evaluator has no side
// effects beyond invoking rule bodies.
func (e *Evaluator) Authorize(ctx context.Context, op Operation, params []any) (Authorized, error) {
	if err := ctx.Err(); err != nil {
		return Authorized{}, fmt.Errorf("authorize %s: %w", op, err)
	}
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return Authorized{}, fmt.Errorf("authorize %s: %w", op, err)
		}
		if !rule.Operations().Intersects(op) {
			continue
		}
		if matcher, ok := rule.(ParamMatcher); ok && !matcher.MatchesParams(params) {
			continue
		}
		outcome, err := rule.Evaluate(ctx, params)
		if err != nil {
			return Authorized{}, fmt.Errorf("authorize %s: %w", op, err)
		}
		if !outcome.Allowed() {
			return Authorized{HasAccess: false, Message: outcome.Message()}, nil
		}
	}
	return Authorized{HasAccess: true}, nil
}
