package models

// ProductPage is a normalized page of product listings.
type ProductPage struct {
	Products   []map[string]any `json:"products"`
	TotalCount int              `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
	HasMore    bool             `json:"has_more"`
}

// FailedUpdate records a single failure inside a bulk price update.
type FailedUpdate struct {
	ProductNo string `json:"product_no"`
	Error     string `json:"error"`
}

// BulkUpdateResult summarizes a bulk price update run.
type BulkUpdateResult struct {
	TotalUpdates      int            `json:"total_updates"`
	SuccessfulUpdates int            `json:"successful_updates"`
	FailedUpdates     []FailedUpdate `json:"failed_updates"`
	SuccessRate       float64        `json:"success_rate"`
}

// APIInfo reports connectivity and rate-limit state for the dashboard.
type APIInfo struct {
	Connected  bool           `json:"connected"`
	MallID     string         `json:"mall_id,omitempty"`
	APIVersion string         `json:"api_version,omitempty"`
	BaseURL    string         `json:"base_url,omitempty"`
	RateLimit  *RateLimitInfo `json:"rate_limit,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// RateLimitInfo is a snapshot of the client-side throttle window.
type RateLimitInfo struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	CurrentCount      int `json:"current_count"`
}
