package driven

import (
	"context"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// CloudAPI is the remote HTTP surface consumed by the sync engine. All
// calls except Login carry the bearer token previously set via SetToken.
//
// A call rejected with HTTP 401 is reported wrapped in
// domain.ErrUnauthorized so the auth manager can perform its
// single-retry-after-relogin rule.
type CloudAPI interface {
	// Login exchanges credentials for a short-lived bearer token.
	// It does not store the token; that is the auth manager's job.
	Login(ctx context.Context, email, password string) (string, error)

	// SetToken sets the bearer token used by subsequent calls
	SetToken(token string)

	// PendingRequests returns the sync work currently pending for one
	// terminal, in the order it should be processed.
	PendingRequests(ctx context.Context, filial, caixa string) ([]domain.SyncRequest, error)

	// UpdateRequestStatus reports a request lifecycle transition back to
	// the cloud side. Completion is authoritative on the remote side.
	UpdateRequestStatus(ctx context.Context, upd domain.RequestStatusUpdate) error

	// RegisterInitialRequest records a one-off initial-sync bookkeeping entry
	RegisterInitialRequest(ctx context.Context, req domain.InitialRequest) error

	// UploadOrders posts the full order list as one batch request. No
	// client-side chunking is applied; the endpoint accepts the full set.
	UploadOrders(ctx context.Context, orders []domain.OrderPayload) error
}
