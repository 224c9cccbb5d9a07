package telegram

import (
	"errors"
	"testing"
	"time"

	"github.com/zelenin/go-tdlib/client"

	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/forwarder"
)

func TestClassifyErrorFloodWait(t *testing.T) {
	err := classifyError(&client.Error{Code: 429, Message: "Too Many Requests: retry after 23"})
	var flood *forwarder.FloodWaitError
	if !errors.As(err, &flood) {
		t.Fatalf("classifyError() = %v, want FloodWaitError", err)
	}
	if got, want := flood.RetryAfter, 23*time.Second; got != want {
		t.Fatalf("RetryAfter = %s, want %s", got, want)
	}
}

func TestClassifyErrorFloodWaitWithoutDuration(t *testing.T) {
	err := classifyError(&client.Error{Code: 429, Message: "Too Many Requests"})
	var flood *forwarder.FloodWaitError
	if !errors.As(err, &flood) {
		t.Fatalf("classifyError() = %v, want FloodWaitError", err)
	}
	if got, want := flood.RetryAfter, forwarder.DefaultFloodWait; got != want {
		t.Fatalf("RetryAfter = %s, want %s", got, want)
	}
}

func TestClassifyErrorByMessageText(t *testing.T) {
	err := classifyError(&client.Error{Code: 420, Message: "Too Many Requests: retry after 5"})
	var flood *forwarder.FloodWaitError
	if !errors.As(err, &flood) {
		t.Fatalf("classifyError() = %v, want FloodWaitError", err)
	}
	if got, want := flood.RetryAfter, 5*time.Second; got != want {
		t.Fatalf("RetryAfter = %s, want %s", got, want)
	}
}

func TestClassifyErrorLeavesOtherTdlibErrors(t *testing.T) {
	err := classifyError(&client.Error{Code: 400, Message: "CHAT_NOT_FOUND"})
	var flood *forwarder.FloodWaitError
	if errors.As(err, &flood) {
		t.Fatalf("classifyError() = %v, want plain error", err)
	}
}

func TestClassifyErrorPassthrough(t *testing.T) {
	base := errors.New("connection refused")
	if got := classifyError(base); got != base {
		t.Fatalf("classifyError() = %v, want the original error", got)
	}
	if got := classifyError(nil); got != nil {
		t.Fatalf("classifyError(nil) = %v, want nil", got)
	}
}
