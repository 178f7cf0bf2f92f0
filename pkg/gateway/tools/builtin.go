package tools

import (
	"context"
	"fmt"
)

// Greeting returns a canned opening line the model can relay verbatim.
func Greeting(assistantName string) Tool {
	if assistantName == "" {
		assistantName = "your AI Assistant"
	}
	return Tool{
		Name:        "greeting",
		Description: "Returns the assistant's standard greeting message.",
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			return map[string]any{
				"greeting_message": fmt.Sprintf("Hello! I'm %s. How can I help you today?", assistantName),
			}
		},
	}
}

// CurrentDatetime reports the server's wall-clock time.
func CurrentDatetime(deps Deps) Tool {
	return Tool{
		Name:        "get_current_datetime",
		Description: "Gets the current date and time.",
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			return map[string]any{
				"current_datetime_str": deps.now().Format("2006-01-02 15:04:05"),
			}
		},
	}
}

// Affirmative is a semantic no-op the model calls to acknowledge a user
// confirmation step in scripted demo flows.
func Affirmative() Tool {
	return Tool{
		Name:        "affirmative",
		Description: "Records that the user answered affirmatively to the current step.",
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			return map[string]any{"acknowledged": true}
		},
	}
}
