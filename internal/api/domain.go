package api

import "time"

// Response is the error body written by ErrorResponse.
type Response struct {
	Success   bool   `json:"success" example:"false"`
	Error     string `json:"error,omitempty" example:"Resource not found"`
	RequestID string `json:"request_id,omitempty" example:"host/abc-000001"`
}

// Envelope wraps every successful payload.
type Envelope struct {
	Success    bool      `json:"success" example:"true"`
	StatusCode int       `json:"statusCode" example:"200"`
	Message    string    `json:"message" example:"Data retrieved successfully"`
	Data       any       `json:"data"`
	Timestamp  time.Time `json:"timestamp"`
}

type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service" example:"kamino-places-api"`
}
