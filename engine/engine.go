// Package engine wires the formula/dependency model and the protocol
// machine into the single UI-facing API described by spec.md §6.
//
// Engine's shape is grounded on the teacher's ServiceContainer: construct
// every sub-collaborator, wire them together, expose one container — and
// its thin per-operation methods (Change/Undo/Save/SaveLocal/Leave/...)
// mirror the thin-method-per-endpoint shape of the teacher's ApiController.
// The teacher's HTTP surface itself (gin's router, http.ListenAndServe) has
// no role in a TCP-protocol client and is not carried forward.
package engine

import (
	"fmt"

	"github.com/berejant/collabsheet/canonical"
	"github.com/berejant/collabsheet/contracts"
	"github.com/berejant/collabsheet/events"
	"github.com/berejant/collabsheet/protocol"
	"github.com/berejant/collabsheet/store"
	"github.com/berejant/collabsheet/transport"
	"github.com/berejant/collabsheet/xmlsave"
)

// DefaultPort is the spreadsheet server's default TCP port, per spec.md §6.
const DefaultPort = 1984

// Config configures Connect. IsValid and Normalize default to
// canonical.DefaultIsValid / canonical.DefaultNormalize when left nil.
type Config struct {
	Host      string
	Port      int
	File      string
	Password  string
	CreateNew bool
	IsValid   contracts.IsValidFunc
	Normalize contracts.NormalizeFunc
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.IsValid == nil {
		c.IsValid = canonical.DefaultIsValid
	}
	if c.Normalize == nil {
		c.Normalize = canonical.DefaultNormalize
	}
	return c
}

// Engine is the UI-facing collaborative spreadsheet session of spec.md §6.
// It is created disconnected and transitions through Connecting to
// Joined (or Closed on failure); construct one with Connect.
type Engine struct {
	cfg     Config
	store   *store.CellStore
	bus     *events.Bus
	machine *protocol.Machine
	socket  contracts.Socket
}

// Connect dials host:port and sends CREATE or JOIN depending on
// cfg.CreateNew. It returns as soon as the request is sent — success or
// failure surfaces asynchronously as a Joined or Failed event, per
// spec.md §6.
func Connect(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	socket, err := transport.Dial(cfg.Host, cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	cellStore := store.New(cfg.IsValid, cfg.Normalize)
	bus := events.New()
	machine := protocol.New(socket, cellStore, bus)

	e := &Engine{cfg: cfg, store: cellStore, bus: bus, machine: machine, socket: socket}

	machine.Start()

	if cfg.CreateNew {
		err = machine.Create(cfg.File, cfg.Password)
	} else {
		err = machine.Join(cfg.File, cfg.Password)
	}
	if err != nil {
		socket.Close()
		return nil, fmt.Errorf("send handshake: %w", err)
	}

	return e, nil
}

// Subscribe registers handler for every event of spec.md §4.5.
func (e *Engine) Subscribe(handler contracts.Subscriber) {
	e.bus.Subscribe(handler)
}

// Change validates cell, pre-checks cycles for a formula against the
// current graph, and sends CHANGE. When a change is already pending, a
// change that passes those checks is dropped: Change returns nil and sends
// nothing, per spec.md §4.4.
func (e *Engine) Change(cell string, content string) error {
	name, err := contracts.ParseCellName(cell, e.cfg.IsValid, e.cfg.Normalize)
	if err != nil {
		return err
	}

	if err := e.store.ValidateContents(name, content); err != nil {
		return err
	}

	e.machine.Change(name, content)
	return nil
}

// Undo sends UNDO.
func (e *Engine) Undo() error {
	return e.machine.Undo()
}

// Save sends SAVE (server-side save).
func (e *Engine) Save() error {
	return e.machine.Save()
}

// SaveLocal writes the current sheet to path as the XML format of
// spec.md §4.6.
func (e *Engine) SaveLocal(path string) error {
	names := e.store.NamesOfAllNonemptyCells()
	records := make([]xmlsave.CellRecord, 0, len(names))
	for _, name := range names {
		records = append(records, xmlsave.CellRecord{
			Name:     string(name),
			Contents: e.store.GetCellContents(name).String(),
		})
	}
	if err := xmlsave.Save(path, e.machine.Version(), records); err != nil {
		return err
	}
	e.store.ClearDirty()
	return nil
}

// IsDirty reports whether any cell has changed since the last successful
// SaveLocal, the `changed` flag of spec.md §3.
func (e *Engine) IsDirty() bool {
	return e.store.IsDirty()
}

// GetSavedVersion returns path's saved version attribute without loading
// any cell.
func GetSavedVersion(path string) (string, error) {
	return xmlsave.GetSavedVersion(path)
}

// Leave sends LEAVE and closes the connection.
func (e *Engine) Leave() error {
	return e.machine.Leave()
}

// GetCellContents returns name's contents, or Text("") if empty or name
// is invalid.
func (e *Engine) GetCellContents(cell string) contracts.CellContents {
	name, err := contracts.ParseCellName(cell, e.cfg.IsValid, e.cfg.Normalize)
	if err != nil {
		return contracts.EmptyContents()
	}
	return e.store.GetCellContents(name)
}

// GetCellValue returns name's value, or Text("") if empty or name is
// invalid.
func (e *Engine) GetCellValue(cell string) contracts.CellValue {
	name, err := contracts.ParseCellName(cell, e.cfg.IsValid, e.cfg.Normalize)
	if err != nil {
		return contracts.EmptyValue()
	}
	return e.store.GetCellValue(name)
}

// NamesOfAllNonemptyCells returns every name currently stored.
func (e *Engine) NamesOfAllNonemptyCells() []contracts.CellName {
	return e.store.NamesOfAllNonemptyCells()
}
