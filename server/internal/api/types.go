package api

// MessageResponse is the body of /select and /background, for both success
// and not-found.
type MessageResponse struct {
	Message string `json:"message"`
}

// JournalResponse is the payload for /journal/toggle.
type JournalResponse struct {
	Visible bool `json:"visible"`
}

// StateResponse is the payload for GET /api/v1/state.
type StateResponse struct {
	Resource       *string `json:"resource"`
	DisplayURL     *string `json:"display_url"`
	Background     *string `json:"background"`
	JournalVisible bool    `json:"journal_visible"`
}

// ClientsResponse is the payload for GET /api/v1/clients.
type ClientsResponse struct {
	Total    int `json:"total"`
	Viewers  int `json:"viewers"`
	Managers int `json:"managers"`
}
