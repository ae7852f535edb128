package sender

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/m3rciful/serverhealth/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// redact hides bot tokens that net/http embeds in request URLs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// errorKind labels err for logs: API status class first, then transport kind.
func errorKind(err error) string {
	switch code := apiStatus(err); {
	case code >= 500:
		return "http_5xx"
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 400:
		return "http_4xx"
	}
	return netutil.Classify(err)
}

func apiStatus(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var group tele.GroupError
	if errors.As(err, &group) {
		return http.StatusBadRequest
	}
	return 0
}
