package models

// URLAnalysisRequest asks the service to fetch and analyse a remote image
type URLAnalysisRequest struct {
	URL     string `json:"url" binding:"required,url"`
	Profile string `json:"profile,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// TestSubmission carries the form fields of a test upload
type TestSubmission struct {
	UserID      string
	Date        string
	Profile     string
	Mode        string
	ContentType string
	Filename    string
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
