// Package personas defines the demo agents the gateway can serve: each
// persona bundles an app name, its prompt pair, the tools it may call, and
// the conversation context it starts with.
package personas

import (
	"fmt"
	"sort"
	"time"

	"github.com/vango-go/live-gateway/pkg/gateway/tools"
)

// Profile carries the demo customer identity injected into each persona's
// starting context.
type Profile struct {
	FirstName string
	LastName  string
}

type Persona struct {
	// Key is the DEMO_TYPE value that selects this persona.
	Key string
	// AppName is reported to clients and used in logs.
	AppName string
	// GlobalPrompt states the assistant identity and conversational rules
	// shared by every turn; Prompt adds the persona's task instructions.
	GlobalPrompt string
	Prompt       string
	Tools        []tools.Tool
	// ContextDefaults seeds the per-session context map.
	ContextDefaults map[string]any
}

type Registry struct {
	byKey map[string]Persona
}

type Deps struct {
	Profile  Profile
	Tools    tools.Deps
	Language string
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewRegistry builds the built-in persona set.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{byKey: make(map[string]Persona)}
	for _, p := range []Persona{
		genericPersona(deps),
		retailPersona(deps),
		modemSetupPersona(deps),
	} {
		r.byKey[p.Key] = p
	}
	return r
}

func (r *Registry) Lookup(key string) (Persona, error) {
	p, ok := r.byKey[key]
	if !ok {
		return Persona{}, fmt.Errorf("unknown demo type %q", key)
	}
	return p, nil
}

func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func baseContext(deps Deps, brand, assistant string) map[string]any {
	language := deps.Language
	if language == "" {
		language = "en-US"
	}
	return map[string]any{
		"customer_profile": map[string]any{
			"first_name":               deps.Profile.FirstName,
			"last_name":                deps.Profile.LastName,
			"preferred_contact_method": "chat",
		},
		"brand_name":       brand,
		"assistant_name":   assistant,
		"current_datetime": deps.now().Format("2006-01-02 15:04:05"),
		"language":         language,
	}
}
