package tools

import (
	"context"

	"google.golang.org/genai"
)

// RequestVisualInput asks the client to turn on its camera so the agent can
// see what the user is looking at. The session's video_status flag tracks
// the request so later tool calls know video is expected.
func RequestVisualInput() Tool {
	return Tool{
		Name:        "request_visual_input",
		Description: "Asks the user to share their camera so the assistant can see the physical device being discussed.",
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			st.Set("video_status", "active")
			return map[string]any{
				"status":  "requested",
				"message": "Please enable your camera and point it at the device.",
			}
		},
	}
}

// ConfirmVisualContext records what the agent believes it is seeing on the
// video feed, and refuses when no video was requested first.
func ConfirmVisualContext() Tool {
	return Tool{
		Name:        "confirm_visual_context",
		Description: "Confirms what is currently visible on the user's camera feed, e.g. the modem model or its light state.",
		Parameters: objectSchema(map[string]*genai.Schema{
			"observation": {Type: genai.TypeString, Description: "Short description of what is visible"},
		}, []string{"observation"}),
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			status, _ := st.Get("video_status")
			if status != "active" {
				return errorPayload("no active video feed; call request_visual_input first")
			}
			observation := stringArg(args, "observation")
			if observation == "" {
				return errorPayload("observation is required")
			}
			st.Set("last_visual_observation", observation)
			return map[string]any{"confirmed": true, "observation": observation}
		},
	}
}
