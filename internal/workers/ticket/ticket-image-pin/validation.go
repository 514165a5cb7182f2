package ticketimagepin

// GetInputSchema is used when the activity registry does not provide one.
// location and keyword may be empty; they are interpolated as given.
func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"requestId", "location", "keyword"},
		"properties": map[string]interface{}{
			"requestId": map[string]interface{}{"type": "string", "minLength": 1},
			"location":  map[string]interface{}{"type": "string"},
			"keyword":   map[string]interface{}{"type": "string"},
		},
	}
}
