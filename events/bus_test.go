package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/events"
)

func TestPublish_orderedPerSubscriber(t *testing.T) {
	bus := events.New()

	var firstSeen, secondSeen []contracts.EventKind
	bus.Subscribe(func(e contracts.Event) { firstSeen = append(firstSeen, e.Kind) })
	bus.Subscribe(func(e contracts.Event) { secondSeen = append(secondSeen, e.Kind) })

	bus.Joined()
	bus.Updated([]contracts.CellName{"A1"})
	bus.UndoEnd()

	want := []contracts.EventKind{contracts.EventJoined, contracts.EventUpdated, contracts.EventUndoEnd}
	assert.Equal(t, want, firstSeen)
	assert.Equal(t, want, secondSeen)
}

func TestUpdated_carriesCells(t *testing.T) {
	bus := events.New()

	var got contracts.Event
	bus.Subscribe(func(e contracts.Event) { got = e })

	bus.Updated([]contracts.CellName{"A1", "B1"})
	assert.Equal(t, contracts.EventUpdated, got.Kind)
	assert.Equal(t, []contracts.CellName{"A1", "B1"}, got.Cells)
}
