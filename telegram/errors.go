package telegram

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zelenin/go-tdlib/client"

	"github.com/Dark-L1ght/TelegramTokenAddressForwarder/forwarder"
)

var retryAfterRe = regexp.MustCompile(`retry after (\d+)`)

// classifyError turns TDLib rate-limit errors into forwarder.FloodWaitError
// and leaves everything else untouched.
func classifyError(err error) error {
	if err == nil || !isTooManyRequests(err) {
		return err
	}
	return &forwarder.FloodWaitError{RetryAfter: retryAfter(err), Err: err}
}

func isTooManyRequests(err error) bool {
	var tdlibError *client.Error
	if !errors.As(err, &tdlibError) {
		return false
	}
	if tdlibError.Code == 429 {
		return true
	}
	return strings.Contains(strings.ToLower(tdlibError.Message), "too many requests")
}

// retryAfter parses the wait TDLib embeds in rate-limit messages, such as
// "Too Many Requests: retry after 23".
func retryAfter(err error) time.Duration {
	m := retryAfterRe.FindStringSubmatch(strings.ToLower(err.Error()))
	if len(m) == 2 {
		if seconds, err := strconv.Atoi(m[1]); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return forwarder.DefaultFloodWait
}
