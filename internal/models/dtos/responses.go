package dtos

type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

type ImportResponse struct {
	Inserted int      `json:"inserted"`
	IDs      []string `json:"record_ids"`
}
