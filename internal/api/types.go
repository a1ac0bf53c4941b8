package api

import "encoding/json"

// CreateRobotRequest is the body of POST /api/v1/robots. Params holds the
// robot's persona, either as text or as a JSON object stored verbatim.
type CreateRobotRequest struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

// CreateRobotResponse is returned when a robot is created
type CreateRobotResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MessageResponse carries a human-readable outcome
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// systemInstructions flattens params: a JSON string becomes its text, any other
// JSON value is kept as its compact encoding.
func (r CreateRobotRequest) systemInstructions() string {
	if len(r.Params) == 0 || string(r.Params) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(r.Params, &text); err == nil {
		return text
	}
	return string(r.Params)
}
