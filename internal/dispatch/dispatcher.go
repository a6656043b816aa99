package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"remotefactory/pkg/factory"
	"remotefactory/pkg/ordinal"
)

// DenyBehavior selects how a factory surface reports authorization denials.
// Both behaviors are first-class: the generated factory picks one per shape.
type DenyBehavior int

const (
	// DenyError surfaces denials as NotAuthorizedError (interface-shaped
	// factories).
	DenyError DenyBehavior = iota
	// DenyNull surfaces denials as a nil result (class-shaped factories).
	DenyNull
)

// Call is one factory invocation: the registration it targets, the denial
// behavior of the calling surface, and the business-parameter values in
// positional order. Injected services are resolved by the dispatcher, never
// supplied by the caller.
type Call struct {
	Reg  *Registration
	Deny DenyBehavior
	Args []any
}

// Portal carries one envelope across the process boundary and returns the
// server's response. Implementations must honor context cancellation both
// before and during the round trip.
type Portal interface {
	RoundTrip(ctx context.Context, env Envelope) (Response, error)
}

// Config assembles a dispatcher. Zero-value fields fall back to sane
// defaults; Portal left nil keeps every call in process.
type Config struct {
	Codecs   *ordinal.Registry
	Invokers *factory.InvokerRegistry
	Resolver factory.ServiceResolver
	Portal   Portal
	Metrics  MetricsRecorder
	Audit    AuditLogger
}

// Dispatcher routes factory calls. Operations marked remote at generation
// time travel through the portal; everything else runs in process:
// authorization first, then the business method through the per-type
// invoker. Independent calls run concurrently; the dispatcher holds no lock
// across a call.
type Dispatcher struct {
	codecs   *ordinal.Registry
	invokers *factory.InvokerRegistry
	resolver factory.ServiceResolver
	portal   Portal
	metrics  MetricsRecorder
	audit    AuditLogger

	mu         sync.RWMutex
	evaluators map[string]*factory.Evaluator
}

// New constructs a dispatcher from the supplied configuration.
func New(cfg Config) *Dispatcher {
	codecs := cfg.Codecs
	if codecs == nil {
		codecs = ordinal.DefaultRegistry()
	}
	invokers := cfg.Invokers
	if invokers == nil {
		invokers = factory.NewInvokerRegistry()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = factory.ResolverMap{}
	}
	return &Dispatcher{
		codecs:     codecs,
		invokers:   invokers,
		resolver:   resolver,
		portal:     cfg.Portal,
		metrics:    cfg.Metrics,
		audit:      cfg.Audit,
		evaluators: make(map[string]*factory.Evaluator),
	}
}

// RegisterRules installs the authorization rule set for an entity type,
// replacing any previous set. Registration happens at startup before
// traffic.
func (d *Dispatcher) RegisterRules(typeName string, set *factory.RuleSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evaluators[typeName] = factory.NewEvaluator(set)
}

// Invokers exposes the invoker strategy registry for per-type overrides.
func (d *Dispatcher) Invokers() *factory.InvokerRegistry {
	return d.invokers
}

// Codecs exposes the converter registry the dispatcher serializes with.
func (d *Dispatcher) Codecs() *ordinal.Registry {
	return d.codecs
}

func (d *Dispatcher) evaluator(typeName string) *factory.Evaluator {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if eval, ok := d.evaluators[typeName]; ok {
		return eval
	}
	return factory.NewEvaluator(nil)
}

// Dispatch executes one factory call: remotely when the registration is
// marked remote and a portal is configured, locally otherwise. Each logical
// call is exactly one attempt; retry policy belongs to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (any, error) {
	started := time.Now()
	var (
		result any
		err    error
		origin = originLocal
	)
	if call.Reg.Remote && d.portal != nil {
		origin = originRemote
		result, err = d.dispatchRemote(ctx, call)
	} else {
		result, err = d.dispatchLocal(ctx, call.Reg, call.Args, call.Deny, d.resolver)
	}
	d.observe(ctx, call.Reg, origin, started, err)
	return result, err
}

// Can probes authorization for one factory call without executing the
// business method. Probes on remote operations travel to the server: its
// rules are authoritative and the client never evaluates them itself.
func (d *Dispatcher) Can(ctx context.Context, call Call) (factory.Authorized, error) {
	if call.Reg.Remote && d.portal != nil {
		env, err := d.encodeEnvelope(call.Reg, call.Args, true)
		if err != nil {
			return factory.Authorized{}, err
		}
		resp, err := d.portal.RoundTrip(ctx, env)
		if err != nil {
			return factory.Authorized{}, err
		}
		switch {
		case resp.Error != nil:
			return factory.Authorized{}, &RemoteError{Message: resp.Error.Message}
		case resp.Denied != nil:
			return factory.Authorized{HasAccess: false, Message: resp.Denied.Message}, nil
		default:
			return factory.Authorized{HasAccess: true}, nil
		}
	}
	return d.evaluator(call.Reg.TypeName).Authorize(ctx, call.Reg.Operation, call.Args)
}

// dispatchServed runs one server-side dispatch on behalf of the HTTP
// handler. Served calls are recorded exactly like calls entering through
// Dispatch, under their own origin.
func (d *Dispatcher) dispatchServed(ctx context.Context, reg *Registration, args []any, resolver factory.ServiceResolver) (any, error) {
	started := time.Now()
	result, err := d.dispatchLocal(ctx, reg, args, DenyError, resolver)
	d.observe(ctx, reg, originServed, started, err)
	return result, err
}

// dispatchLocal runs authorization and, on full allowance, the business
// method through the entity type's invoker. The resolver supplies injected
// services for this call only.
func (d *Dispatcher) dispatchLocal(ctx context.Context, reg *Registration, args []any, deny DenyBehavior, resolver factory.ServiceResolver) (any, error) {
	verdict, err := d.evaluator(reg.TypeName).Authorize(ctx, reg.Operation, args)
	if err != nil {
		return nil, err
	}
	if !verdict.HasAccess {
		if deny == DenyNull {
			return nil, nil
		}
		return nil, &factory.NotAuthorizedError{Message: verdict.Message}
	}

	full, err := d.assembleArgs(reg, args, resolver)
	if err != nil {
		return nil, err
	}
	inv, err := reg.Make(ctx, full)
	if err != nil {
		return nil, err
	}
	return d.invokers.Resolve(reg.TypeName).Invoke(ctx, inv)
}

// assembleArgs interleaves business values with locally-resolved services
// per the registration's positional layout.
func (d *Dispatcher) assembleArgs(reg *Registration, business []any, resolver factory.ServiceResolver) ([]any, error) {
	if got, want := len(business), reg.businessCount(); got != want {
		return nil, fmt.Errorf("dispatch: %s expects %d business parameters, got %d", reg.key(), want, got)
	}
	full := make([]any, len(reg.Params))
	next := 0
	for i, spec := range reg.Params {
		switch spec.Slot {
		case BusinessParam:
			full[i] = business[next]
			next++
		case ServiceParam:
			svc, ok := resolver.Resolve(spec.Service)
			if !ok {
				return nil, &factory.ServiceNotFoundError{Name: spec.Service}
			}
			full[i] = svc
		}
	}
	return full, nil
}

func (d *Dispatcher) dispatchRemote(ctx context.Context, call Call) (any, error) {
	// A signal cancelled before transmission aborts without a round trip;
	// one cancelled mid-flight aborts the portal wait through the context.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", call.Reg.key(), err)
	}
	env, err := d.encodeEnvelope(call.Reg, call.Args, false)
	if err != nil {
		return nil, err
	}
	resp, err := d.portal.RoundTrip(ctx, env)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.Error != nil:
		return nil, &RemoteError{Message: resp.Error.Message}
	case resp.Denied != nil:
		// Server denial mirrors local behavior exactly.
		if call.Deny == DenyNull {
			return nil, nil
		}
		return nil, &factory.NotAuthorizedError{Message: resp.Denied.Message}
	case resp.Result == nil:
		return nil, &RemoteError{Message: "response carried no result"}
	default:
		if isNullValue(resp.Result.Value) {
			return nil, nil
		}
		return call.Reg.Result.Decode(d.codecs, resp.Result.Value)
	}
}

func (d *Dispatcher) encodeEnvelope(reg *Registration, business []any, probe bool) (Envelope, error) {
	if got, want := len(business), reg.businessCount(); got != want {
		return Envelope{}, fmt.Errorf("dispatch: %s expects %d business parameters, got %d", reg.key(), want, got)
	}
	env := Envelope{
		Type:      reg.TypeName,
		Operation: reg.Operation.String(),
		Method:    reg.Method,
		Probe:     probe,
		Params:    make([]ParamPayload, 0, len(business)),
	}
	next := 0
	for _, spec := range reg.Params {
		if spec.Slot != BusinessParam {
			continue
		}
		raw, err := spec.Codec.Encode(d.codecs, business[next])
		if err != nil {
			return Envelope{}, fmt.Errorf("dispatch: encode parameter %s: %w", spec.Codec.TypeName, err)
		}
		env.Params = append(env.Params, ParamPayload{Type: spec.Codec.TypeName, Value: raw})
		next++
	}
	return env, nil
}

func (d *Dispatcher) observe(ctx context.Context, reg *Registration, origin string, started time.Time, err error) {
	elapsed := time.Since(started)
	outcome := classifyOutcome(err)
	if d.metrics != nil {
		d.metrics.Observe(ctx, reg.key(), err == nil, elapsed)
	}
	if d.audit != nil {
		entry := Entry{
			Type:       reg.TypeName,
			Operation:  reg.Operation.String(),
			Method:     reg.Method,
			Origin:     origin,
			Outcome:    outcome,
			Duration:   elapsed,
			OccurredAt: started.UTC(),
		}
		if err != nil {
			entry.Message = err.Error()
		}
		d.audit.Record(ctx, entry)
	}
}

const (
	originLocal  = "local"
	originRemote = "remote"
	originServed = "served"
)

func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, factory.ErrNotAuthorized):
		return "denied"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func isNullValue(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe == nil
}
