// Package protocol drives the wire handshake, request/reply, and broadcast
// state machine described by spec.md §4.4 (component C5): CREATE/JOIN,
// CHANGE/UNDO/SAVE with optimistic-concurrency replies, and asynchronous
// UPDATE broadcasts from other clients.
//
// No repo in the retrieval pack implements a comparable line-delimited TCP
// client — the teacher is itself a server with no outbound protocol of this
// shape — so Machine is written from spec.md's explicit state-machine
// description in the teacher's idiom (small structs, constructor
// functions, fmt.Errorf-wrapped sentinel errors). Its background
// receive-loop lifecycle (Start spins a worker goroutine; closing the
// socket makes the blocked read return an error and the loop exit) is
// grounded on the teacher's WebhookDispatcher.Start/Close, whose worker
// goroutine drains `queue chan WebhookSendCommand` until the channel is
// closed; here a closed socket plays the role of the closed channel.
package protocol

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/events"
	"github.com/berejant/collabsheet/xmlsave"
)

// Machine owns the socket and the session state spec.md §3 lists as shared
// between the UI-driven and receive-driven actors: name, version, and
// pendingChange. All of it is guarded by mu. mu covers only this session
// state: the CellStore and the Bus serialize their own state with their own
// mutexes, so a reply's store mutation and its version update are not made
// under one lock.
type Machine struct {
	mu  sync.Mutex
	sk  contracts.Socket
	st  contracts.CellStore
	bus *events.Bus

	name          string
	version       string
	pendingChange *PendingChange
	joined        bool
	closed        bool
}

// New wires a Machine over an already-dialed socket. store receives every
// applied UPDATE/CHANGE OK/UNDO OK/JOIN OK mutation; bus receives every
// event those mutations and every reply kind produce.
func New(socket contracts.Socket, store contracts.CellStore, bus *events.Bus) *Machine {
	return &Machine{sk: socket, st: store, bus: bus}
}

// Start spins up the background receive-loop goroutine, spec.md §5's "one
// I/O background worker".
func (m *Machine) Start() {
	go m.receiveLoop()
}

// Create sends CREATE. A successful CREATE OK reply triggers an automatic
// JOIN, handled entirely by the receive loop.
func (m *Machine) Create(file, password string) error {
	m.mu.Lock()
	m.name = file
	m.mu.Unlock()
	return m.sendFrame(createFrame(file, password))
}

// Join sends JOIN directly (the caller already has credentials, either
// supplied by the UI or returned by a CREATE OK reply).
func (m *Machine) Join(file, password string) error {
	m.mu.Lock()
	m.name = file
	m.mu.Unlock()
	return m.sendFrame(joinFrame(file, password))
}

// Change sends CHANGE for cell/content, unless a change is already
// pending, per spec.md §4.4's at-most-one-in-flight rule — in which case it
// is a silent no-op and reports false. The caller is responsible for
// pre-checking cycles against the current graph before calling Change, per
// spec.md §4.4's "applicability of content is pre-validated locally."
func (m *Machine) Change(cell contracts.CellName, content string) bool {
	m.mu.Lock()
	if m.closed || m.pendingChange != nil {
		m.mu.Unlock()
		return false
	}
	m.pendingChange = &PendingChange{Cell: cell, Content: content}
	file, version := m.name, m.version
	m.mu.Unlock()

	if err := m.sendFrame(changeFrame(file, version, cell, content)); err != nil {
		m.mu.Lock()
		m.pendingChange = nil
		m.mu.Unlock()
		return false
	}
	return true
}

// Undo sends UNDO.
func (m *Machine) Undo() error {
	m.mu.Lock()
	file, version := m.name, m.version
	m.mu.Unlock()
	return m.sendFrame(undoFrame(file, version))
}

// Save sends SAVE (the server-side save; unrelated to xmlsave's local
// SaveLocal).
func (m *Machine) Save() error {
	m.mu.Lock()
	file := m.name
	m.mu.Unlock()
	return m.sendFrame(saveFrame(file))
}

// Leave sends LEAVE and closes the socket. The in-flight receive loop
// observes the closed socket as a read error and reports
// ConnectionClosed, per spec.md §5's cancellation semantics.
func (m *Machine) Leave() error {
	m.mu.Lock()
	file := m.name
	m.mu.Unlock()

	err := m.sendFrame(leaveFrame(file))

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.sk.Close()

	return err
}

// sendFrame writes lines one at a time. Closed drops sends silently, per
// spec.md §4.4's disconnection semantics.
func (m *Machine) sendFrame(lines []string) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil
	}

	for _, line := range lines {
		if err := m.sk.SendLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) receiveLoop() {
	for {
		r, err := readReply(m.sk)
		if err != nil {
			m.handleReadError(err)
			return
		}
		m.dispatch(r)
	}
}

func (m *Machine) handleReadError(err error) {
	m.mu.Lock()
	wasClosed := m.closed
	m.closed = true
	m.mu.Unlock()

	// A read failing on a socket this machine already closed (Leave, or a
	// CREATE/JOIN failure) is the end of the session, not a transport fault.
	if wasClosed || errors.Is(err, io.EOF) {
		m.bus.ConnectionClosed()
		return
	}
	m.bus.SocketError(err.Error())
}

func (m *Machine) dispatch(r *reply) {
	switch r.kind {
	case "CREATE OK":
		m.handleCreateOK(r)
	case "CREATE FAIL":
		m.handleTeardownFail(r)
	case "JOIN OK":
		m.handleJoinOK(r)
	case "JOIN FAIL":
		m.handleTeardownFail(r)
	case "CHANGE OK":
		m.handleChangeOK(r)
	case "CHANGE WAIT":
		m.handleChangeWait(r)
	case "CHANGE FAIL":
		m.handleChangeFail(r)
	case "UNDO OK":
		m.handleUndoOK(r)
	case "UNDO END":
		m.handleUndoEnd(r)
	case "UNDO WAIT":
		m.handleUndoWait(r)
	case "UNDO FAIL":
		m.bus.Failed(r.lines)
	case "SAVE OK":
		// No event is defined for a successful server-side save; spec.md
		// §4.5's event list carries no Saved payload.
	case "SAVE FAIL":
		m.bus.Failed(r.lines)
	case "UPDATE":
		m.handleUpdate(r)
	default:
		m.bus.GenericError()
	}
}

func (m *Machine) handleCreateOK(r *reply) {
	name, hasName := r.header("Name")
	password, hasPassword := r.header("Password")
	if !hasName || !hasPassword {
		m.bus.GenericError()
		return
	}
	// CREATE OK triggers an automatic JOIN with the returned credentials.
	if err := m.Join(name, password); err != nil {
		m.bus.SocketError(err.Error())
	}
}

func (m *Machine) handleTeardownFail(r *reply) {
	m.mu.Lock()
	m.closed = true
	m.joined = false
	m.mu.Unlock()
	m.sk.Close()
	m.bus.Failed(r.lines)
}

func (m *Machine) handleJoinOK(r *reply) {
	name, hasName := r.header("Name")
	version, hasVersion := r.header("Version")
	if !hasName || !hasVersion {
		m.bus.GenericError()
		return
	}

	_, records, err := xmlsave.Decode(bytes.NewReader(r.payload))
	if err != nil {
		m.bus.GenericError()
		return
	}
	for _, record := range records {
		// Server-supplied names are taken as already normalized: like the
		// Cell: header of UPDATE and UNDO OK, they are not re-run through
		// ParseCellName.
		if _, err := m.st.SetContents(contracts.CellName(record.Name), record.Contents); err != nil {
			m.bus.GenericError()
		}
	}

	m.mu.Lock()
	m.name = name
	m.version = version
	m.joined = true
	m.mu.Unlock()

	m.bus.Joined()
}

func (m *Machine) handleChangeOK(r *reply) {
	version, hasVersion := r.header("Version")
	if !hasVersion {
		m.bus.GenericError()
		return
	}

	m.mu.Lock()
	pending := m.pendingChange
	m.pendingChange = nil
	m.mu.Unlock()

	if pending == nil {
		m.bus.GenericError()
		return
	}

	changed, err := m.st.SetContents(pending.Cell, pending.Content)
	if err != nil {
		m.bus.GenericError()
		return
	}

	m.mu.Lock()
	m.version = version
	m.mu.Unlock()

	m.bus.Updated(changed)
}

func (m *Machine) handleChangeWait(r *reply) {
	version, hasVersion := r.header("Version")
	if !hasVersion {
		m.bus.GenericError()
		return
	}

	m.mu.Lock()
	pending := m.pendingChange
	file, current := m.name, m.version
	sameVersion := version == current
	if !sameVersion {
		// An UPDATE will advance the client's version and catch it up;
		// drop the pending change rather than resend against a stale
		// base, per spec.md §4.4/§9's preserved "drop, stay subscribed"
		// behavior.
		m.pendingChange = nil
	}
	m.mu.Unlock()

	if sameVersion && pending != nil {
		m.sendFrame(changeFrame(file, current, pending.Cell, pending.Content))
	}
}

func (m *Machine) handleChangeFail(r *reply) {
	m.mu.Lock()
	m.pendingChange = nil
	m.mu.Unlock()
	m.bus.Failed(r.lines)
}

func (m *Machine) handleUndoOK(r *reply) {
	version, hasVersion := r.header("Version")
	cell, hasCell := r.header("Cell")
	if !hasVersion || !hasCell {
		m.bus.GenericError()
		return
	}

	changed, err := m.st.SetContents(contracts.CellName(cell), string(r.payload))
	if err != nil {
		m.bus.GenericError()
		return
	}

	m.mu.Lock()
	m.version = version
	m.mu.Unlock()

	m.bus.Updated(changed)
}

func (m *Machine) handleUndoEnd(r *reply) {
	version, hasVersion := r.header("Version")
	if !hasVersion {
		m.bus.GenericError()
		return
	}
	m.mu.Lock()
	m.version = version
	m.mu.Unlock()
	m.bus.UndoEnd()
}

func (m *Machine) handleUndoWait(r *reply) {
	version, hasVersion := r.header("Version")
	if !hasVersion {
		m.bus.GenericError()
		return
	}

	m.mu.Lock()
	file, current := m.name, m.version
	sameVersion := version == current
	m.mu.Unlock()

	if sameVersion {
		m.sendFrame(undoFrame(file, current))
	}
}

func (m *Machine) handleUpdate(r *reply) {
	version, hasVersion := r.header("Version")
	cell, hasCell := r.header("Cell")
	if !hasVersion || !hasCell {
		m.bus.GenericError()
		return
	}

	changed, err := m.st.SetContents(contracts.CellName(cell), string(r.payload))
	if err != nil {
		m.bus.GenericError()
		return
	}

	m.mu.Lock()
	m.version = version
	m.mu.Unlock()

	m.bus.Updated(changed)
}

// Version returns the current session version token, mostly useful to
// tests asserting version-monotonicity.
func (m *Machine) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Joined reports whether the last CREATE/JOIN handshake succeeded.
func (m *Machine) Joined() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joined
}
