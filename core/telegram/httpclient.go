package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/telegram/netutil"
)

// BuildHTTPClient returns the client used for Bot API calls. The timeout
// leaves room for long polling on top of the response header deadline.
func BuildHTTPClient() *http.Client {
	return netutil.NewClient(netutil.ClientOptions{
		Timeout:        30 * time.Second,
		ResponseHeader: 25 * time.Second,
		Retries:        3,
		Backoff:        2 * time.Second,
		OnRetry: func(req *http.Request, attempt int, err error) {
			logger.LogEvent(context.Background(), logger.TG, slog.LevelWarn, "api.retry",
				slog.String("endpoint", endpointName(req)),
				slog.Int("attempt", attempt),
				slog.String("kind", netutil.Classify(err)),
			)
		},
	})
}

// endpointName strips the token-bearing path prefix from Bot API URLs.
func endpointName(req *http.Request) string {
	path := req.URL.Path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
