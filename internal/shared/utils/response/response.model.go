package response

// StandardApiResponse is the envelope every JSON endpoint returns. SSE streams
// and the swagger UI are the only routes outside it.
type StandardApiResponse struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
}
