package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	wrapped := fmt.Errorf("query caixa 01-001: %w", ErrConnectionLost)
	if !errors.Is(wrapped, ErrConnectionLost) {
		t.Error("expected wrapped error to match ErrConnectionLost")
	}
	if errors.Is(wrapped, ErrNotConnected) {
		t.Error("expected distinct sentinels not to match")
	}
}

func TestNotConnectedMessage(t *testing.T) {
	// The unavailability message is what ends up in remote request
	// status updates, so its wording is part of the contract.
	if !strings.Contains(ErrNotConnected.Error(), "não disponível") {
		t.Errorf("expected availability wording, got %q", ErrNotConnected.Error())
	}
}
