package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"remotefactory/pkg/factory"
)

func newServerFixture(t *testing.T, rules *factory.RuleSet) (*httptest.Server, *counterService) {
	t.Helper()
	svc := &counterService{}
	serverSide := New(Config{
		Codecs:   newCodecs(t),
		Resolver: factory.ResolverMap{"counter": svc},
	})
	if rules != nil {
		serverSide.RegisterRules("widget", rules)
	}
	registry := NewHandlerRegistry()
	registry.MustRegister(createWidgetReg(false))
	srv := httptest.NewServer(NewHandler(serverSide, registry))
	t.Cleanup(srv.Close)
	return srv, svc
}

func postEnvelope(t *testing.T, srv *httptest.Server, body string) (int, Response) {
	t.Helper()
	resp, err := http.Post(srv.URL+DispatchPath, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestServeHTTPRoundTrip(t *testing.T) {
	srv, svc := newServerFixture(t, allowAll())

	status, resp := postEnvelope(t, srv, `{"type":"widget","operation":"create","params":[{"type":"string","value":"w-1"}]}`)
	if status != http.StatusOK || resp.Result == nil {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	if resp.Result.Type != "widget" || string(resp.Result.Value) != `[3,"w-1"]` {
		t.Fatalf("result = %+v", resp.Result)
	}
	if svc.calls.Load() != 1 {
		t.Fatalf("calls = %d", svc.calls.Load())
	}
}

func TestServeHTTPDenied(t *testing.T) {
	srv, svc := newServerFixture(t, denyAll("widgets are frozen"))

	status, resp := postEnvelope(t, srv, `{"type":"widget","operation":"create","params":[{"type":"string","value":"w-1"}]}`)
	if status != http.StatusOK || resp.Denied == nil {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	if resp.Denied.Message != "widgets are frozen" {
		t.Fatalf("message = %q", resp.Denied.Message)
	}
	if svc.calls.Load() != 0 {
		t.Fatalf("denied request ran the method %d times", svc.calls.Load())
	}
}

func TestServeHTTPRecordsMetricsAndAudit(t *testing.T) {
	metrics := NewExpvarMetricsRecorder("")
	audit := NewMemoryAuditLog()
	svc := &counterService{}
	serverSide := New(Config{
		Codecs:   newCodecs(t),
		Resolver: factory.ResolverMap{"counter": svc},
		Metrics:  metrics,
		Audit:    audit,
	})
	serverSide.RegisterRules("widget", allowAll())
	registry := NewHandlerRegistry()
	registry.MustRegister(createWidgetReg(false))
	srv := httptest.NewServer(NewHandler(serverSide, registry))
	t.Cleanup(srv.Close)

	status, _ := postEnvelope(t, srv, `{"type":"widget","operation":"create","params":[{"type":"string","value":"w-1"}]}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	snap := metrics.Snapshot()
	if snap.Results["widget/create"]["success"] != 1 {
		t.Fatalf("metrics = %+v", snap.Results)
	}
	entries := audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d", len(entries))
	}
	if entries[0].Origin != "served" || entries[0].Outcome != "ok" || entries[0].Operation != "create" {
		t.Fatalf("entry = %+v", entries[0])
	}

	serverSide.RegisterRules("widget", denyAll("frozen"))
	status, resp := postEnvelope(t, srv, `{"type":"widget","operation":"create","params":[{"type":"string","value":"w-2"}]}`)
	if status != http.StatusOK || resp.Denied == nil {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	entries = audit.Entries()
	if len(entries) != 2 || entries[1].Outcome != "denied" || entries[1].Message != "frozen" {
		t.Fatalf("entries = %+v", entries)
	}
	if metrics.Snapshot().Results["widget/create"]["error"] != 1 {
		t.Fatalf("denied dispatch must count as an error outcome")
	}
}

func TestServeHTTPExecuteRoutesByMethod(t *testing.T) {
	serverSide := New(Config{Codecs: newCodecs(t)})
	serverSide.RegisterRules("widget", allowAll())
	registry := NewHandlerRegistry()
	registry.MustRegister(recountWidgetReg(false))
	reset := recountWidgetReg(false)
	reset.Method = "Reset"
	reset.Make = func(_ context.Context, args []any) (factory.Invocation, error) {
		id := args[0].(string)
		return factory.Invocation{
			Operation: factory.Execute,
			Call: factory.ValueCall(func(context.Context) (*widget, error) {
				return &widget{ID: id, Count: 0}, nil
			}),
		}, nil
	}
	registry.MustRegister(reset)
	srv := httptest.NewServer(NewHandler(serverSide, registry))
	t.Cleanup(srv.Close)

	status, resp := postEnvelope(t, srv, `{"type":"widget","operation":"execute","method":"Recount","params":[{"type":"string","value":"w-7"}]}`)
	if status != http.StatusOK || resp.Result == nil {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	if string(resp.Result.Value) != `[6,"w-7"]` {
		t.Fatalf("recount result = %s", resp.Result.Value)
	}

	status, resp = postEnvelope(t, srv, `{"type":"widget","operation":"execute","method":"Reset","params":[{"type":"string","value":"w-7"}]}`)
	if status != http.StatusOK || resp.Result == nil {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	if string(resp.Result.Value) != `[0,"w-7"]` {
		t.Fatalf("reset result = %s", resp.Result.Value)
	}

	status, resp = postEnvelope(t, srv, `{"type":"widget","operation":"execute","method":"Vanish","params":[]}`)
	if status != http.StatusNotFound || resp.Error == nil {
		t.Fatalf("unknown method: status=%d resp=%+v", status, resp)
	}
}

func TestServeHTTPBadRequests(t *testing.T) {
	srv, _ := newServerFixture(t, allowAll())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest},
		{"unknown operation", `{"type":"widget","operation":"transmogrify","params":[]}`, http.StatusBadRequest},
		{"unregistered type", `{"type":"gadget","operation":"create","params":[]}`, http.StatusNotFound},
		{"param count mismatch", `{"type":"widget","operation":"create","params":[]}`, http.StatusBadRequest},
		{"undecodable param", `{"type":"widget","operation":"create","params":[{"type":"string","value":17}]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := postEnvelope(t, srv, tc.body)
			if status != tc.want {
				t.Fatalf("status = %d, want %d", status, tc.want)
			}
			if resp.Error == nil {
				t.Fatalf("resp = %+v", resp)
			}
		})
	}
}

func TestServeHTTPMethodAndPath(t *testing.T) {
	srv, _ := newServerFixture(t, allowAll())

	resp, err := http.Get(srv.URL + DispatchPath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/v1/other", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("wrong path status = %d", resp.StatusCode)
	}
}

func TestServeHTTPProbe(t *testing.T) {
	srv, svc := newServerFixture(t, denyAll("no"))

	status, resp := postEnvelope(t, srv, `{"type":"widget","operation":"create","probe":true,"params":[{"type":"string","value":"w"}]}`)
	if status != http.StatusOK || resp.Denied == nil || resp.Denied.Message != "no" {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	if svc.calls.Load() != 0 {
		t.Fatalf("probe ran the method %d times", svc.calls.Load())
	}
}

func TestServeHTTPExecutionError(t *testing.T) {
	serverSide := New(Config{Codecs: newCodecs(t)})
	serverSide.RegisterRules("widget", allowAll())
	registry := NewHandlerRegistry()
	registry.MustRegister(&Registration{
		TypeName:  "widget",
		Operation: factory.Execute,
		Method:    "Explode",
		Result:    RegisteredResult("widget"),
		Make: func(context.Context, []any) (factory.Invocation, error) {
			return factory.Invocation{Operation: factory.Execute, Call: func(context.Context) (any, error) {
				return nil, fmt.Errorf("boom")
			}}, nil
		},
	})
	srv := httptest.NewServer(NewHandler(serverSide, registry))
	defer srv.Close()

	status, resp := postEnvelope(t, srv, `{"type":"widget","operation":"execute","method":"Explode","params":[]}`)
	if status != http.StatusInternalServerError || resp.Error == nil {
		t.Fatalf("status=%d resp=%+v", status, resp)
	}
	if !strings.Contains(resp.Error.Message, "boom") {
		t.Fatalf("message = %q", resp.Error.Message)
	}
}

// End-to-end: client dispatcher with an HTTP portal against a real server
// handler. The server is authoritative for authorization; clients share its
// behavior through the response mapping.
func TestRemoteParityOverHTTP(t *testing.T) {
	srv, svc := newServerFixture(t, allowAll())

	client := New(Config{
		Codecs: newCodecs(t),
		Portal: NewHTTPPortal(srv.URL, srv.Client()),
	})
	result, err := client.Dispatch(context.Background(), Call{Reg: createWidgetReg(true), Args: []any{"w-42"}})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	w := result.(*widget)
	if w.ID != "w-42" || w.Count != 4 {
		t.Fatalf("result = %+v", w)
	}
	if svc.calls.Load() != 1 {
		t.Fatalf("server calls = %d", svc.calls.Load())
	}
}

func TestRemoteExecuteParityOverHTTP(t *testing.T) {
	serverSide := New(Config{Codecs: newCodecs(t)})
	serverSide.RegisterRules("widget", allowAll())
	registry := NewHandlerRegistry()
	registry.MustRegister(recountWidgetReg(false))
	srv := httptest.NewServer(NewHandler(serverSide, registry))
	t.Cleanup(srv.Close)

	client := New(Config{
		Codecs: newCodecs(t),
		Portal: NewHTTPPortal(srv.URL, srv.Client()),
	})
	result, err := client.Dispatch(context.Background(), Call{Reg: recountWidgetReg(true), Args: []any{"w-10"}})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	w := result.(*widget)
	if w.ID != "w-10" || w.Count != 8 {
		t.Fatalf("result = %+v", w)
	}
}

func TestRemoteDenialParityOverHTTP(t *testing.T) {
	srv, _ := newServerFixture(t, denyAll("server rule"))

	client := New(Config{
		Codecs: newCodecs(t),
		Portal: NewHTTPPortal(srv.URL, srv.Client()),
	})

	result, err := client.Dispatch(context.Background(), Call{Reg: createWidgetReg(true), Deny: DenyNull, Args: []any{"w"}})
	if err != nil || result != nil {
		t.Fatalf("null mode: result=%v err=%v", result, err)
	}

	_, err = client.Dispatch(context.Background(), Call{Reg: createWidgetReg(true), Deny: DenyError, Args: []any{"w"}})
	var denied *factory.NotAuthorizedError
	if !errors.As(err, &denied) || denied.Message != "server rule" {
		t.Fatalf("error mode: %v", err)
	}

	verdict, err := client.Can(context.Background(), Call{Reg: createWidgetReg(true), Args: []any{"w"}})
	if err != nil || verdict.HasAccess || verdict.Message != "server rule" {
		t.Fatalf("probe: %+v err=%v", verdict, err)
	}
}
