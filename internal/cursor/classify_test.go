package cursor

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillwatch/internal/domain"
)

func fill(id string, ts int64) domain.FillEvent {
	return domain.FillEvent{Coin: "BTC", Side: domain.SideBuy, TradeID: id, Timestamp: ts}
}

func ids(events []domain.FillEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.TradeID)
	}
	return out
}

func TestClassifySortsAndAdvances(t *testing.T) {
	events := []domain.FillEvent{fill("c", 300), fill("a", 100), fill("b", 200)}

	fresh, next := Classify(domain.CursorState{}, events, 500)

	assert.Equal(t, []string{"a", "b", "c"}, ids(fresh))
	assert.Equal(t, int64(300), next.LastTS)
	assert.Equal(t, []string{"a", "b", "c"}, next.SeenIDs)
	assert.Equal(t, "c", events[0].TradeID, "input must not be reordered")
}

func TestClassifySeenIDNewByTimestamp(t *testing.T) {
	// A seen id is skipped at or below the watermark but still counts as new
	// when its timestamp moves past it.
	state := domain.CursorState{LastTS: 500, SeenIDs: []string{"x"}}

	fresh, next := Classify(state, []domain.FillEvent{fill("x", 100), fill("y", 100), fill("x", 900)}, 500)

	assert.Equal(t, []string{"y", "x"}, ids(fresh))
	assert.Equal(t, int64(900), next.LastTS)
	assert.Equal(t, []string{"x", "y"}, next.SeenIDs)
	assert.Equal(t, []string{"x"}, state.SeenIDs)
}

func TestClassifyTimestampOnly(t *testing.T) {
	state := domain.CursorState{LastTS: 200}
	fresh, next := Classify(state, []domain.FillEvent{fill("", 150), fill("", 250)}, 500)

	require.Len(t, fresh, 1)
	assert.Equal(t, int64(250), fresh[0].Timestamp)
	assert.Equal(t, int64(250), next.LastTS)
	assert.Empty(t, next.SeenIDs)
}

func TestClassifyLastTSMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var state domain.CursorState
	for cycle := 0; cycle < 50; cycle++ {
		var events []domain.FillEvent
		for i := 0; i < rng.Intn(8); i++ {
			id := ""
			if rng.Intn(3) > 0 {
				id = fmt.Sprintf("t%d", rng.Intn(40))
			}
			events = append(events, fill(id, int64(rng.Intn(1000))))
		}
		_, next := Classify(state, events, 20)
		require.GreaterOrEqual(t, next.LastTS, state.LastTS)
		require.LessOrEqual(t, len(next.SeenIDs), 20)
		state = next
	}
}

func TestClassifySeenCapEvictsOldest(t *testing.T) {
	var events []domain.FillEvent
	for i := 0; i < 600; i++ {
		events = append(events, fill(fmt.Sprintf("id-%03d", i), int64(i+1)))
	}

	fresh, next := Classify(domain.CursorState{}, events, DefaultMaxSeenIDs)

	assert.Len(t, fresh, 600)
	require.Len(t, next.SeenIDs, DefaultMaxSeenIDs)
	assert.Equal(t, "id-100", next.SeenIDs[0])
	assert.Equal(t, "id-599", next.SeenIDs[len(next.SeenIDs)-1])
}

func TestClassifySeenCapAppliedAfterCycle(t *testing.T) {
	state := domain.CursorState{LastTS: 100, SeenIDs: []string{"A", "B"}}
	events := []domain.FillEvent{fill("C", 50), fill("D", 60), fill("A", 70)}

	fresh, next := Classify(state, events, 2)

	assert.Equal(t, []string{"C", "D"}, ids(fresh), "A was already seen")
	assert.Equal(t, int64(100), next.LastTS)
	assert.Equal(t, []string{"C", "D"}, next.SeenIDs)
	assert.Equal(t, []string{"A", "B"}, state.SeenIDs)
}

func TestClassifyOversizedStateKeptUntilEmit(t *testing.T) {
	state := domain.CursorState{LastTS: 100, SeenIDs: []string{"a", "b", "c", "d"}}

	fresh, next := Classify(state, []domain.FillEvent{fill("a", 10), fill("e", 20)}, 2)

	assert.Equal(t, []string{"e"}, ids(fresh))
	assert.Equal(t, []string{"d", "e"}, next.SeenIDs)
}

func TestClassifyRawForwardedOnce(t *testing.T) {
	raw := domain.FillEvent{Coin: domain.Unknown, Raw: 100}

	fresh, next := Classify(domain.CursorState{}, []domain.FillEvent{raw, raw, fill("a", 10)}, 500)
	assert.Len(t, fresh, 2)
	assert.True(t, next.SentRawOnce)
	assert.Equal(t, int64(10), next.LastTS)

	fresh, next = Classify(next, []domain.FillEvent{raw}, 500)
	assert.Empty(t, fresh)
	assert.True(t, next.SentRawOnce)
}

func TestClassifyIDWithoutTimestampAcrossCycles(t *testing.T) {
	ev := fill("A", 0)

	fresh, state := Classify(domain.CursorState{}, []domain.FillEvent{ev}, 500)
	require.Len(t, fresh, 1)
	assert.Zero(t, state.LastTS)
	assert.Equal(t, []string{"A"}, state.SeenIDs)

	fresh, state = Classify(state, []domain.FillEvent{ev}, 500)
	assert.Empty(t, fresh)
	assert.Equal(t, []string{"A"}, state.SeenIDs)
}

func TestClassifyEmpty(t *testing.T) {
	state := domain.CursorState{LastTS: 5, SeenIDs: []string{"a"}, SentRawOnce: true}
	fresh, next := Classify(state, nil, 500)
	assert.Empty(t, fresh)
	assert.Equal(t, state, next)
}
