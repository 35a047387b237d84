package llm

var AgentTools = []Tool{
	{
		Name:        "track_response",
		Description: "Record one answer of the daily check-in. Returns confirmation, running stats and, once the day is complete, the consolidated reflection.",
		Parameters: objReq(map[string]any{
			"field": prop("string", "One of: presence, emotion, gratitude, meditation_times, meditation_duration, gratitudes, bestPrompt, insights"),
			"value": prop("string", "Scores 1-10; meditation_times none|1x|2x|3x+; meditation_duration 20|40|60|60+; bestPrompt wealth|family|home|health|joy|gratitude; free text for insights"),
			"values": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "The list of gratitudes, only for the gratitudes field",
			},
			"date": prop("string", "Day in YYYY-MM-DD format. Defaults to today."),
		}, "field"),
	},
	{
		Name:        "get_insight",
		Description: "Get the rolling insight over the most recent entries.",
		Parameters:  obj(nil),
	},
	{
		Name:        "get_consolidated",
		Description: "Get the consolidated reflection for a completed day.",
		Parameters: obj(map[string]any{
			"date": prop("string", "Day in YYYY-MM-DD format. Defaults to today."),
		}),
	},
	{
		Name:        "get_weekly_summary",
		Description: "Get the weekly summary for the seven days ending today: averages, trend, insights and focus areas.",
		Parameters:  obj(nil),
	},
	{
		Name:        "get_tracking_summary",
		Description: "Get the raw tracking data: running stats and every daily entry.",
		Parameters:  obj(nil),
	},
	{
		Name:        "get_note",
		Description: "Retrieve a note by key, or list every note when key is omitted. Notes hold standing intentions, goals and anything the user asked you to remember.",
		Parameters: obj(map[string]any{
			"key": prop("string", "Note key"),
		}),
	},
	{
		Name:        "set_note",
		Description: "Store or update a note by key. Keys starting with an underscore are reserved.",
		Parameters: objReq(map[string]any{
			"key":   prop("string", "Note key"),
			"value": prop("string", "Note value"),
		}, "key", "value"),
	},
	{
		Name:        "get_time",
		Description: "Get the current date and time in the user's timezone.",
		Parameters:  obj(nil),
	},
}

// Helper functions for building JSON Schema objects.

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func obj(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func objReq(properties map[string]any, required ...string) map[string]any {
	s := obj(properties)
	s["required"] = required
	return s
}
