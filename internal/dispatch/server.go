package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"remotefactory/pkg/factory"
	"remotefactory/pkg/ordinal"
)

// Handler serves the factory dispatch endpoint. The server side is
// authoritative: it re-runs authorization with its own rules and executes
// the business method through the local invoker, so a client can never
// bypass a server rule. The request context carries cancellation; a client
// that disconnects mid-flight cancels in-flight work through it.
type Handler struct {
	dispatcher *Dispatcher
	registry   *HandlerRegistry

	// Scope builds the per-request service resolver. Defaults to the
	// dispatcher's resolver when nil.
	Scope func(r *http.Request) factory.ServiceResolver
}

// NewHandler constructs the dispatch HTTP handler.
func NewHandler(d *Dispatcher, registry *HandlerRegistry) *Handler {
	return &Handler{dispatcher: d, registry: registry}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != DispatchPath {
		http.NotFound(w, r)
		return
	}
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Error: &ErrorPayload{Message: "malformed envelope: " + err.Error()}})
		return
	}
	op, err := factory.ParseOperation(env.Operation)
	if err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Error: &ErrorPayload{Message: err.Error()}})
		return
	}
	reg, ok := h.registry.Lookup(env.Type, op, env.Method)
	if !ok {
		writeResponse(w, http.StatusNotFound, Response{Error: &ErrorPayload{Message: "no factory registered for " + registrationKey(env.Type, op, env.Method)}})
		return
	}
	args, err := decodeParams(h.dispatcher.codecs, reg, env.Params)
	if err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Error: &ErrorPayload{Message: err.Error()}})
		return
	}

	resolver := h.dispatcher.resolver
	if h.Scope != nil {
		resolver = h.Scope(r)
	}
	ctx := r.Context()

	if env.Probe {
		verdict, err := h.dispatcher.evaluator(reg.TypeName).Authorize(ctx, reg.Operation, args)
		if err != nil {
			writeResponse(w, http.StatusInternalServerError, Response{Error: &ErrorPayload{Message: err.Error()}})
			return
		}
		if !verdict.HasAccess {
			writeResponse(w, http.StatusOK, Response{Denied: &DenialPayload{Message: verdict.Message}})
			return
		}
		writeResponse(w, http.StatusOK, Response{Result: &ResultPayload{Value: json.RawMessage("null")}})
		return
	}

	result, err := h.dispatcher.dispatchServed(ctx, reg, args, resolver)
	if err != nil {
		var denied *factory.NotAuthorizedError
		if errors.As(err, &denied) {
			writeResponse(w, http.StatusOK, Response{Denied: &DenialPayload{Message: denied.Message}})
			return
		}
		writeResponse(w, http.StatusInternalServerError, Response{Error: &ErrorPayload{Message: err.Error()}})
		return
	}
	if result == nil {
		writeResponse(w, http.StatusOK, Response{Result: &ResultPayload{Value: json.RawMessage("null")}})
		return
	}
	encoded, err := reg.Result.Encode(h.dispatcher.codecs, result)
	if err != nil {
		writeResponse(w, http.StatusInternalServerError, Response{Error: &ErrorPayload{Message: err.Error()}})
		return
	}
	writeResponse(w, http.StatusOK, Response{Result: &ResultPayload{Type: reg.Result.TypeName, Value: encoded}})
}

// decodeParams decodes the envelope's business parameters against the
// registration's positional layout.
func decodeParams(codecs *ordinal.Registry, reg *Registration, payloads []ParamPayload) ([]any, error) {
	if len(payloads) != reg.businessCount() {
		return nil, fmt.Errorf("dispatch: %s expects %d business parameters, envelope carried %d", reg.key(), reg.businessCount(), len(payloads))
	}
	args := make([]any, 0, len(payloads))
	i := 0
	for _, spec := range reg.Params {
		if spec.Slot != BusinessParam {
			continue
		}
		decoded, err := spec.Codec.Decode(codecs, payloads[i].Value)
		if err != nil {
			return nil, err
		}
		args = append(args, decoded)
		i++
	}
	return args, nil
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
