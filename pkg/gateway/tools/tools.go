// Package tools holds the function tools exposed to live agents. Tools are
// thin stubs: they call out to configured HTTP endpoints, search an embedded
// catalog, or mutate per-session state. A failing tool returns an error
// payload to the model, never a Go error, so a bad tool call can not take a
// session down.
package tools

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"
)

// State is the mutable per-session context a tool may read and write. It is
// shared with the out-of-band callback endpoint, so implementations must be
// safe for concurrent use.
type State interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Handler runs one tool call. Failures are reported inside the returned
// payload under the "error" key.
type Handler func(ctx context.Context, args map[string]any, st State) map[string]any

type Tool struct {
	Name        string
	Description string
	Parameters  *genai.Schema
	Run         Handler
}

// Declaration returns the function declaration advertised to the model.
func (t Tool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

type Registry struct {
	byName map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if strings.TrimSpace(t.Name) == "" || t.Run == nil {
			continue
		}
		r.byName[t.Name] = t
	}
	return r
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return Tool{}, false
	}
	t, ok := r.byName[strings.TrimSpace(name)]
	return t, ok
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	if r == nil {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(r.byName))
	for _, name := range r.Names() {
		t := r.byName[name]
		decls = append(decls, t.Declaration())
	}
	return decls
}

// Deps carries the external endpoints and shared plumbing the tool stubs
// need. Zero-value URLs disable the corresponding tool at call time (the
// tool reports "endpoint not configured" to the model).
type Deps struct {
	HTTPClient    *http.Client
	WeatherURL    string
	SearchURL     string
	SummarizerURL string
	CRMURL        string
	Now           func() time.Time
}

func (d Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func objectSchema(props map[string]*genai.Schema, required []string) *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   required,
	}
}

func errorPayload(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}
