package domain

// RequestStatus represents the remote lifecycle state of a sync request
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusProcessing RequestStatus = "processing"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusError      RequestStatus = "error"
)

// SyncRequest is a unit of on-demand synchronization work issued by the
// cloud side. It is created remotely, fetched by the poller and finalized
// by pushing a status update back; the local process never deletes one.
type SyncRequest struct {
	ID         int           `json:"id"`
	Filial     string        `json:"filial"`
	Caixa      string        `json:"caixa"`
	DataVendas string        `json:"datavendas"`
	Status     RequestStatus `json:"status"`
	Message    string        `json:"message"`
	NRegistros int           `json:"nregistros"`
}

// RequestStatusUpdate is the body posted back to the cloud API to move a
// request through its pending→processing→completed|error lifecycle.
type RequestStatusUpdate struct {
	ID          int    `json:"id"`
	Processando bool   `json:"processando"`
	Completed   bool   `json:"completed"`
	Error       bool   `json:"error"`
	Message     string `json:"message"`
	NRegistros  int    `json:"nregistros"`
}

// ProcessingUpdate marks a request as picked up for processing.
func ProcessingUpdate(id int) RequestStatusUpdate {
	return RequestStatusUpdate{ID: id, Processando: true}
}

// CompletedUpdate marks a request as successfully completed with the
// number of orders uploaded.
func CompletedUpdate(id int, orders int) RequestStatusUpdate {
	return RequestStatusUpdate{
		ID:         id,
		Completed:  true,
		Message:    "sincronização concluída",
		NRegistros: orders,
	}
}

// ErrorUpdate marks a request as failed with a human-readable message.
func ErrorUpdate(id int, message string) RequestStatusUpdate {
	return RequestStatusUpdate{ID: id, Error: true, Message: message}
}

// InitialRequest is the one-off bookkeeping record registered when a
// terminal joins a session for the first time, capped at NRegistros rows.
type InitialRequest struct {
	Filial      string `json:"filial"`
	Caixa       string `json:"caixa"`
	DataVendas  string `json:"datavendas"`
	Initial     bool   `json:"initial"`
	Message     string `json:"message"`
	NRegistros  int    `json:"nregistros"`
	Processando bool   `json:"processando"`
	Completed   bool   `json:"completed"`
	Error       bool   `json:"error"`
}
