// Package cursor decides which fills are new against the persisted cursor
// and stores that cursor.
package cursor

import (
	"sort"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

// DefaultMaxSeenIDs bounds the remembered trade ids.
const DefaultMaxSeenIDs = 500

// Classify returns the events that are new relative to state, in ascending
// timestamp order, together with the advanced state. state and events are not
// modified.
//
// An event without timestamp and id is forwarded only while no such event has
// been forwarded before. Any other event is new when its timestamp is beyond
// the running watermark or its id has not been seen. The seen ids are cut to
// the maxSeen most recent insertions only after every event is classified.
func Classify(state domain.CursorState, events []domain.FillEvent, maxSeen int) ([]domain.FillEvent, domain.CursorState) {
	if maxSeen <= 0 {
		maxSeen = DefaultMaxSeenIDs
	}

	sorted := make([]domain.FillEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return tsKey(sorted[i]) < tsKey(sorted[j])
	})

	next := domain.CursorState{LastTS: state.LastTS, SentRawOnce: state.SentRawOnce}
	seen := newSeenSet(state.SeenIDs)

	var fresh []domain.FillEvent
	for _, ev := range sorted {
		if ev.IsRaw() {
			if !next.SentRawOnce {
				fresh = append(fresh, ev)
				next.SentRawOnce = true
			}
			continue
		}

		newByTS := ev.HasTimestamp() && ev.Timestamp > next.LastTS
		newByID := ev.HasTradeID() && !seen.has(ev.TradeID)
		if !newByTS && !newByID {
			continue
		}

		fresh = append(fresh, ev)
		if newByTS {
			next.LastTS = ev.Timestamp
		}
		if ev.HasTradeID() {
			seen.add(ev.TradeID)
		}
	}

	next.SeenIDs = seen.ids(maxSeen)
	return fresh, next
}

func tsKey(ev domain.FillEvent) int64 {
	if ev.Timestamp < 0 {
		return 0
	}
	return ev.Timestamp
}
