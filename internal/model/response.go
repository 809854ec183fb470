package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status                string `json:"status"`
	AI                    bool   `json:"ai"`
	AIConsecutiveFailures int    `json:"ai_consecutive_failures"`
	OpenBatches           int    `json:"open_batches"`
	PendingBatches        int    `json:"pending_batches"`
	Subscribers           int    `json:"subscribers"`
}

type IngestBatchResponse struct {
	Ingested int            `json:"ingested"`
	Skipped  int            `json:"skipped"`
	Rejected int            `json:"rejected"`
	Results  []IngestResult `json:"results"`
}

type TokenRegisterResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

type WebhookCreateResponse struct {
	Status string `json:"status"`
	ID     int    `json:"id"`
}
