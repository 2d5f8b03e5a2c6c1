package dto

// GatewayCallbackResponse is returned to the gateway. Only 500 asks it to retry.
type GatewayCallbackResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
