package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedCall is one request received by a FakeService
type RecordedCall struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          map[string]any
	RawBody       []byte
}

type scriptedResponse struct {
	status int
	body   string
}

// FakeService is an httptest server answering scripted responses per route.
// Responses for a route are consumed in order; the last one repeats.
type FakeService struct {
	Server *httptest.Server

	mu        sync.Mutex
	calls     []RecordedCall
	responses map[string][]scriptedResponse
}

// SetupFakeService starts a FakeService that is closed when the test ends.
func SetupFakeService(t testing.TB) *FakeService {
	t.Helper()

	f := &FakeService{responses: make(map[string][]scriptedResponse)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// On scripts a response for method and path.
func (f *FakeService) On(method, path string, status int, body string) *FakeService {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := method + " " + path
	f.responses[key] = append(f.responses[key], scriptedResponse{status: status, body: body})
	return f
}

// OnTask scripts a 2xx task envelope response.
func (f *FakeService) OnTask(method, path string, status int, task map[string]any) *FakeService {
	body, err := json.Marshal(map[string]any{"data": task})
	if err != nil {
		panic(fmt.Sprintf("marshal task: %v", err))
	}
	return f.On(method, path, status, string(body))
}

// URL returns the server URL with suffix appended.
func (f *FakeService) URL(suffix string) string {
	return f.Server.URL + suffix
}

// Calls returns a copy of the received requests in arrival order.
func (f *FakeService) Calls() []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	calls := make([]RecordedCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// Paths returns "METHOD path" for every received request in arrival order.
func (f *FakeService) Paths() []string {
	calls := f.Calls()
	paths := make([]string, len(calls))
	for i, c := range calls {
		paths[i] = c.Method + " " + c.Path
	}
	return paths
}

func (f *FakeService) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	call := RecordedCall{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		RawBody:       raw,
	}
	if len(raw) > 0 && r.Header.Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(raw, &call.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	key := r.Method + " " + r.URL.Path
	queue := f.responses[key]
	var resp *scriptedResponse
	if len(queue) > 0 {
		resp = &queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
	}
	f.mu.Unlock()

	if resp == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"no scripted response for %s"}`, key)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	io.WriteString(w, resp.body)
}
