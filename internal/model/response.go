package model

// MessageResponse is the common body shape of the reference API: every
// plain success or failure carries a human message plus a type tag
// ("success", "warning" or "error") the client switches on.
type MessageResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
