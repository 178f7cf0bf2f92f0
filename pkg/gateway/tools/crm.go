package tools

import (
	"context"

	"google.golang.org/genai"
)

// UpdateCRM posts a field update to the CRM endpoint. The session ID rides
// along as requestId so the CRM side can call us back on /callback once a
// human manager approves the change.
func UpdateCRM(deps Deps) Tool {
	return Tool{
		Name:        "update_crm",
		Description: "Updates a field on the customer's CRM record, for example their plan or contact preference. May require manager approval before it takes effect.",
		Parameters: objectSchema(map[string]*genai.Schema{
			"field": {Type: genai.TypeString, Description: "CRM field to update"},
			"value": {Type: genai.TypeString, Description: "New value for the field"},
		}, []string{"field", "value"}),
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			field := stringArg(args, "field")
			value := stringArg(args, "value")
			if field == "" || value == "" {
				return errorPayload("field and value are required")
			}
			if deps.CRMURL == "" {
				return errorPayload("CRM service endpoint not configured")
			}

			sessionID, _ := st.Get("session_id")
			st.Set("manager_approved", false)
			payload := postJSON(ctx, deps, deps.CRMURL, map[string]any{
				"requestId": sessionID,
				"field":     field,
				"value":     value,
			})
			if _, failed := payload["error"]; failed {
				return payload
			}
			payload["pending_manager_approval"] = true
			return payload
		},
	}
}

// CheckManagerApproval reads the approval flag the /callback endpoint sets.
func CheckManagerApproval() Tool {
	return Tool{
		Name:        "check_manager_approval",
		Description: "Checks whether the pending CRM change has been approved by a manager yet.",
		Run: func(ctx context.Context, args map[string]any, st State) map[string]any {
			approved, ok := st.Get("manager_approved")
			if !ok {
				return map[string]any{"manager_approved": false, "pending": false}
			}
			return map[string]any{"manager_approved": approved, "pending": approved == false}
		},
	}
}
