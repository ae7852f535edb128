package helpers

import tele "gopkg.in/telebot.v4"

const repliesKey = "reply_counters"

type replyCounters struct {
	messages int
	keyboard bool
}

// ResetReplies attaches zeroed reply counters to the update.
func ResetReplies(c tele.Context) {
	c.Set(repliesKey, &replyCounters{})
}

// Replies returns the number of replies queued for the update and whether any had a keyboard.
func Replies(c tele.Context) (int, bool) {
	if rc, ok := c.Get(repliesKey).(*replyCounters); ok {
		return rc.messages, rc.keyboard
	}
	return 0, false
}

func noteReply(c tele.Context, keyboard bool) {
	rc, ok := c.Get(repliesKey).(*replyCounters)
	if !ok {
		rc = &replyCounters{}
		c.Set(repliesKey, rc)
	}
	rc.messages++
	rc.keyboard = rc.keyboard || keyboard
}
