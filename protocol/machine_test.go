package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/berejant/collabsheet/canonical"
	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/events"
	"github.com/berejant/collabsheet/mocks"
	"github.com/berejant/collabsheet/store"
)

func newTestMachine(sock contracts.Socket) (*Machine, *store.CellStore, *[]contracts.Event) {
	st := store.New(canonical.DefaultIsValid, canonical.DefaultNormalize)
	bus := events.New()
	var got []contracts.Event
	bus.Subscribe(func(e contracts.Event) { got = append(got, e) })
	return New(sock, st, bus), st, &got
}

// expectReadLines queues sock to return lines in order, one per ReadLine
// call, each consumed exactly once.
func expectReadLines(sock *mocks.Socket, lines ...string) {
	for _, line := range lines {
		sock.On("ReadLine").Return(line, nil).Once()
	}
}

// TestJoinThenUpdate implements spec.md §8 scenario 5: JOIN OK populates
// the store and fires Joined; a subsequent UPDATE applies a formula and
// fires Updated with the new version already visible.
func TestJoinThenUpdate(t *testing.T) {
	joinPayload := []byte(`<spreadsheet version="v1"><cell><name>A1</name><contents>3</contents></cell></spreadsheet>`)
	updatePayload := []byte("=A1+1")

	sock := mocks.NewSocket(t)
	expectReadLines(sock, "JOIN OK", "Name:foo", "Version:v1", fmt.Sprintf("Length:%d", len(joinPayload)))
	sock.On("ReadN", len(joinPayload)).Return(joinPayload, nil).Once()
	expectReadLines(sock, "UPDATE", "Name:foo", "Version:v2", "Cell:B1", fmt.Sprintf("Length:%d", len(updatePayload)))
	sock.On("ReadN", len(updatePayload)).Return(updatePayload, nil).Once()

	m, st, got := newTestMachine(sock)

	r, err := readReply(sock)
	assert.NoError(t, err)
	m.dispatch(r)

	r, err = readReply(sock)
	assert.NoError(t, err)
	m.dispatch(r)

	assert.Equal(t, []contracts.EventKind{contracts.EventJoined, contracts.EventUpdated}, kindsOf(*got))
	assert.Equal(t, []contracts.CellName{"B1"}, (*got)[1].Cells)

	value := st.GetCellValue("B1")
	assert.Equal(t, contracts.ValueNumber, value.Kind)
	assert.Equal(t, 4.0, value.Number)
	assert.Equal(t, "v2", m.Version())
}

// TestChangeWait_retryThenCommit implements spec.md §8 scenario 6.
func TestChangeWait_retryThenCommit(t *testing.T) {
	sock := mocks.NewSocket(t)
	var sent []string
	sock.On("SendLine", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		sent = append(sent, args.String(0))
	})

	m, st, got := newTestMachine(sock)
	m.mu.Lock()
	m.name = "foo"
	m.version = "v1"
	m.mu.Unlock()

	assert.True(t, m.Change("A1", "9"))
	assert.Equal(t, []string{"CHANGE", "Name:foo", "Version:v1", "Cell:A1", "Length:1", "9"}, sent)

	expectReadLines(sock, "CHANGE WAIT", "Name:foo", "Version:v1")
	r, err := readReply(sock)
	assert.NoError(t, err)
	m.dispatch(r)

	// WAIT at the client's own version resends the same pending change.
	assert.Len(t, sent, 12)
	assert.Equal(t, []string{"CHANGE", "Name:foo", "Version:v1", "Cell:A1", "Length:1", "9"}, sent[6:])

	expectReadLines(sock, "CHANGE OK", "Name:foo", "Version:v2")
	r, err = readReply(sock)
	assert.NoError(t, err)
	m.dispatch(r)

	assert.Equal(t, []contracts.EventKind{contracts.EventUpdated}, kindsOf(*got))
	assert.Equal(t, "v2", m.Version())
	value := st.GetCellValue("A1")
	assert.Equal(t, 9.0, value.Number)
}

// TestChange_atMostOneInFlight covers spec.md §8's protocol invariant.
func TestChange_atMostOneInFlight(t *testing.T) {
	sock := mocks.NewSocket(t)
	var sentCount int
	sock.On("SendLine", mock.Anything).Return(nil).Run(func(mock.Arguments) { sentCount++ })

	m, _, _ := newTestMachine(sock)

	assert.True(t, m.Change("A1", "1"))
	before := sentCount

	assert.False(t, m.Change("B1", "2"))
	assert.Equal(t, before, sentCount, "no outbound bytes while a change is pending")
}

func kindsOf(events []contracts.Event) []contracts.EventKind {
	kinds := make([]contracts.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}
