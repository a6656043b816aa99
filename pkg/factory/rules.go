package factory

import "context"

// Rule gates one or more factory operations. Evaluate receives the call's
// business-parameter values in positional order and returns a verdict; an
// error aborts evaluation and propagates to the caller unchanged.
//
// Rules are built once at startup and must be read-only afterwards. Blocking
// rules simply block their goroutine; there is no separate asynchronous
// entry point.
type Rule interface {
	Operations() Operation
	Evaluate(ctx context.Context, params []any) (RuleOutcome, error)
}

// ParamMatcher is optionally implemented by rules whose parameter signature
// must match the call's available parameters. A rule without a matcher
// applies to every parameter shape.
type ParamMatcher interface {
	MatchesParams(params []any) bool
}

type funcRule struct {
	ops Operation
	fn  func(ctx context.Context, params []any) (RuleOutcome, error)
}

func (r funcRule) Operations() Operation { return r.ops }

func (r funcRule) Evaluate(ctx context.Context, params []any) (RuleOutcome, error) {
	return r.fn(ctx, params)
}

// NewRule builds a rule over the given operation mask that applies to every
// parameter shape.
func NewRule(ops Operation, fn func(ctx context.Context) (RuleOutcome, error)) Rule {
	return funcRule{ops: ops, fn: func(ctx context.Context, _ []any) (RuleOutcome, error) {
		return fn(ctx)
	}}
}

// BoolRule wraps a boolean predicate over the given operations: false denies
// with no message.
func BoolRule(ops Operation, fn func(ctx context.Context) bool) Rule {
	return NewRule(ops, func(ctx context.Context) (RuleOutcome, error) {
		return OutcomeFromBool(fn(ctx)), nil
	})
}

// StringRule wraps a string-returning predicate over the given operations:
// a non-empty return denies with that message, the empty string allows.
func StringRule(ops Operation, fn func(ctx context.Context) string) Rule {
	return NewRule(ops, func(ctx context.Context) (RuleOutcome, error) {
		return OutcomeFromString(fn(ctx)), nil
	})
}

type rule1[T any] struct {
	ops Operation
	fn  func(ctx context.Context, arg T) (RuleOutcome, error)
}

func (r rule1[T]) Operations() Operation { return r.ops }

func (r rule1[T]) MatchesParams(params []any) bool {
	if len(params) < 1 {
		return false
	}
	_, ok := params[0].(T)
	return ok
}

func (r rule1[T]) Evaluate(ctx context.Context, params []any) (RuleOutcome, error) {
	arg, _ := params[0].(T)
	return r.fn(ctx, arg)
}

// NewRule1 builds a rule whose signature requires the call's first business
// parameter to be assignable to T. Calls with an incompatible first
// parameter skip the rule.
func NewRule1[T any](ops Operation, fn func(ctx context.Context, arg T) (RuleOutcome, error)) Rule {
	return rule1[T]{ops: ops, fn: fn}
}

// BoolRule1 is NewRule1 with the boolean denial convention.
func BoolRule1[T any](ops Operation, fn func(ctx context.Context, arg T) bool) Rule {
	return NewRule1(ops, func(ctx context.Context, arg T) (RuleOutcome, error) {
		return OutcomeFromBool(fn(ctx, arg)), nil
	})
}

// StringRule1 is NewRule1 with the string denial convention.
func StringRule1[T any](ops Operation, fn func(ctx context.Context, arg T) string) Rule {
	return NewRule1(ops, func(ctx context.Context, arg T) (RuleOutcome, error) {
		return OutcomeFromString(fn(ctx, arg)), nil
	})
}

type rule2[T, U any] struct {
	ops Operation
	fn  func(ctx context.Context, first T, second U) (RuleOutcome, error)
}

func (r rule2[T, U]) Operations() Operation { return r.ops }

func (r rule2[T, U]) MatchesParams(params []any) bool {
	if len(params) < 2 {
		return false
	}
	if _, ok := params[0].(T); !ok {
		return false
	}
	_, ok := params[1].(U)
	return ok
}

func (r rule2[T, U]) Evaluate(ctx context.Context, params []any) (RuleOutcome, error) {
	first, _ := params[0].(T)
	second, _ := params[1].(U)
	return r.fn(ctx, first, second)
}

// NewRule2 builds a rule whose signature requires the call's first two
// business parameters to be assignable to T and U.
func NewRule2[T, U any](ops Operation, fn func(ctx context.Context, first T, second U) (RuleOutcome, error)) Rule {
	return rule2[T, U]{ops: ops, fn: fn}
}
