package services

import (
	"context"
	"log/slog"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven"
)

// BatchUploader pushes aggregated orders to the cloud API as a single
// batch request. It performs a login when no token is present, delegates
// 401 handling to the auth manager's single-retry rule and returns any
// other failure without retrying - retry-on-generic-failure is the
// caller's decision.
type BatchUploader struct {
	api    driven.CloudAPI
	auth   *AuthManager
	logger *slog.Logger
}

// NewBatchUploader creates a new batch uploader.
func NewBatchUploader(api driven.CloudAPI, auth *AuthManager, logger *slog.Logger) *BatchUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchUploader{api: api, auth: auth, logger: logger}
}

// Upload sends the full order list as one batch. A batch with zero
// orders is never sent.
func (u *BatchUploader) Upload(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		u.logger.Info("nothing to sync")
		return nil
	}

	if err := u.auth.EnsureToken(ctx); err != nil {
		return err
	}

	payloads := Payloads(orders)

	u.auth.Count(CallSendPedidos)
	err := u.auth.Do(ctx, func(ctx context.Context) error {
		return u.api.UploadOrders(ctx, payloads)
	})
	if err != nil {
		u.logger.Error("batch upload failed", "orders", len(payloads), "error", err)
		return err
	}

	u.logger.Info("batch uploaded", "orders", len(payloads))
	return nil
}
