package protocol

import "github.com/berejant/collabsheet/contracts"

// PendingChange is the at-most-one local edit awaiting an OK/WAIT/FAIL
// reply, per spec.md §3's session state and §9's design note: the source
// tracked the cell and its content as two separately-cleared mutable
// fields; here they live and die together behind a single pointer.
type PendingChange struct {
	Cell    contracts.CellName
	Content string
}
