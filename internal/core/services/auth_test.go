package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
	"github.com/exd-sistemas/caixa-sync/internal/core/ports/driven/mocks"
)

func newTestAuth(api *mocks.MockCloudAPI) *AuthManager {
	return NewAuthManager(AuthConfig{
		API:      api,
		Email:    "user@exd",
		Password: "secret",
	})
}

func TestLoginStoresToken(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	if err := auth.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if auth.Token() != "mock-token" {
		t.Errorf("expected token mock-token, got %s", auth.Token())
	}
	if api.CurrentToken() != "mock-token" {
		t.Errorf("expected token propagated to client, got %s", api.CurrentToken())
	}
	if auth.Stats().Login != 1 {
		t.Errorf("expected 1 login counted, got %d", auth.Stats().Login)
	}
}

func TestFailedLoginKeepsPreviousToken(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	if err := auth.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	api.LoginFn = func(email, password string) (string, error) {
		return "", domain.ErrAuthFailed
	}

	err := auth.Login(context.Background())
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
	if auth.Token() != "mock-token" {
		t.Errorf("expected previous token retained, got %s", auth.Token())
	}
}

func TestEnsureTokenSkipsLoginWhenPresent(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	if err := auth.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := auth.EnsureToken(context.Background()); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	if api.Logins() != 1 {
		t.Errorf("expected 1 login, got %d", api.Logins())
	}
}

func TestDoRetriesOnceAfter401(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	calls := 0
	err := auth.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("request_index.php: %w", domain.ErrUnauthorized)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
	if api.Logins() != 1 {
		t.Errorf("expected 1 re-login, got %d", api.Logins())
	}
}

func TestDoSecond401IsTerminal(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	calls := 0
	err := auth.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.ErrUnauthorized
	})

	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestDoPassesThroughOtherErrors(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	sentinel := errors.New("boom")
	calls := 0
	err := auth.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retry on generic failure, got %d attempts", calls)
	}
	if api.Logins() != 0 {
		t.Errorf("expected no re-login, got %d", api.Logins())
	}
}

func TestDoFailedReloginAborts(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	api.LoginFn = func(email, password string) (string, error) {
		return "", domain.ErrAuthFailed
	}
	auth := newTestAuth(api)

	calls := 0
	err := auth.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.ErrUnauthorized
	})

	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retry after failed re-login, got %d attempts", calls)
	}
}

func TestCountAndResetStats(t *testing.T) {
	auth := newTestAuth(mocks.NewMockCloudAPI())

	auth.Count(CallCheckRequests)
	auth.Count(CallCheckRequests)
	auth.Count(CallSendPedidos)
	auth.Count(CallUpdateStatus)
	auth.Count(CallInsertRequest)

	stats := auth.Stats()
	if stats.Total != 5 {
		t.Errorf("expected total 5, got %d", stats.Total)
	}
	if stats.CheckRequests != 2 {
		t.Errorf("expected checkRequests 2, got %d", stats.CheckRequests)
	}
	if stats.SendPedidos != 1 || stats.UpdateStatus != 1 || stats.InsertRequest != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}

	auth.ResetStats()
	if auth.Stats().Total != 0 {
		t.Errorf("expected counters zeroed, got %+v", auth.Stats())
	}
	if auth.Stats().LastReset.IsZero() {
		t.Error("expected LastReset stamped")
	}
}

func TestRestoreToken(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	auth.RestoreToken("persisted-token")

	if auth.Token() != "persisted-token" {
		t.Errorf("expected restored token, got %s", auth.Token())
	}
	if api.CurrentToken() != "persisted-token" {
		t.Errorf("expected token propagated to client, got %s", api.CurrentToken())
	}
	if api.Logins() != 0 {
		t.Errorf("expected no login during restore, got %d", api.Logins())
	}

	auth.RestoreToken("")
	if auth.Token() != "persisted-token" {
		t.Error("expected empty restore to be a no-op")
	}
}

func TestClear(t *testing.T) {
	api := mocks.NewMockCloudAPI()
	auth := newTestAuth(api)

	if err := auth.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	auth.Clear()

	if auth.Token() != "" {
		t.Errorf("expected empty token after clear, got %s", auth.Token())
	}
}
