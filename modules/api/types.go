package api

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UploadResponse carries the URL of a stored attachment.
type UploadResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// HealthResponse reports per-module health over HTTP.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
