package snapshot

import "fmt"

const keyPrefix = "auction"

// roomKey holds the latest snapshot of a room.
func roomKey(code string) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// eventsChannel carries every snapshot as it is written.
func eventsChannel(code string) string {
	return fmt.Sprintf("%s:room:%s:events", keyPrefix, code)
}
