package conversation

import (
	"fmt"
	"strconv"

	"avatar-engine-be/internal/entity"
)

// ChannelKey is the conversation key of a channel.
func ChannelKey(channelId int64) string {
	return strconv.FormatInt(channelId, 10)
}

// DirectKey is the conversation key shared by both participants of a direct
// conversation. Argument order does not matter. When only one side is known
// (zero) or both sides are the same user, the key is dm_<id>.
func DirectKey(a, b int64) string {
	switch {
	case a == 0 && b == 0:
		return "dm_0"
	case a == 0 || a == b:
		return fmt.Sprintf("dm_%d", b)
	case b == 0:
		return fmt.Sprintf("dm_%d", a)
	}
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm_%d_%d", a, b)
}

// KeyFor derives the conversation key for a message target.
func KeyFor(target entity.MessageTarget) (string, error) {
	switch t := target.(type) {
	case entity.ChannelTarget:
		return ChannelKey(t.ChannelId), nil
	case entity.DirectTarget:
		return DirectKey(t.From.Id, t.To.Id), nil
	default:
		return "", fmt.Errorf("unknown message target %T", target)
	}
}
