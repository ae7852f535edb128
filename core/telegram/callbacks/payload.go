package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadInt64 parses the callback payload as int64.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(CallbackPayload(c), 10, 64)
}

// PayloadKindID parses payloads shaped like "cpu|12".
func PayloadKindID(c tele.Context) (string, int64, error) {
	kind, id, ok := strings.Cut(CallbackPayload(c), "|")
	if !ok || kind == "" {
		return "", 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return "", 0, err
	}
	return kind, n, nil
}

// JoinPayload builds a multi-part payload understood by PayloadKindID.
func JoinPayload(parts ...string) string {
	return strings.Join(parts, "|")
}
