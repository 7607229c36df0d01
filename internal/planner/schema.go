package planner

// ScheduleSchema is the JSON schema sent with every generation request so
// providers that support structured output can enforce the shape.
func ScheduleSchema(minActivities, maxActivities, minDesc, maxDesc int) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"schedule_items": map[string]any{
				"type":     "array",
				"minItems": minActivities,
				"maxItems": maxActivities,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string", "minLength": 1},
						"description": map[string]any{
							"type":      "string",
							"minLength": minDesc,
							"maxLength": maxDesc,
						},
						"activity_type": map[string]any{
							"type": "string",
							"enum": []string{"routine", "meal", "study", "entertainment", "social", "exercise", "learning", "rest", "free_time", "custom"},
						},
						"priority": map[string]any{
							"type": "string",
							"enum": []string{"high", "medium", "low"},
						},
						"start_time": map[string]any{
							"type":    "string",
							"pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$",
						},
						"duration_minutes": map[string]any{
							"type":    "integer",
							"minimum": 5,
							"maximum": 720,
						},
					},
					"required": []string{"name", "description", "activity_type", "priority", "start_time", "duration_minutes"},
				},
			},
		},
		"required": []string{"schedule_items"},
	}
}
