package dto

// Envelope is the body of every after-sales response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PageResponse wraps a page of items.
type PageResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}
