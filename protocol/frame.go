package protocol

import (
	"fmt"

	"github.com/berejant/collabsheet/contracts"
)

// Outbound frame builders, one per command of spec.md §4.4's table. Each
// returns the frame as separate lines; Machine.sendFrame writes them one at
// a time through contracts.Socket.SendLine.

func createFrame(file, password string) []string {
	return []string{"CREATE", "Name:" + file, "Password:" + password}
}

func joinFrame(file, password string) []string {
	return []string{"JOIN", "Name:" + file, "Password:" + password}
}

func changeFrame(file, version string, cell contracts.CellName, content string) []string {
	return []string{
		"CHANGE",
		"Name:" + file,
		"Version:" + version,
		"Cell:" + string(cell),
		fmt.Sprintf("Length:%d", len(content)),
		content,
	}
}

func undoFrame(file, version string) []string {
	return []string{"UNDO", "Name:" + file, "Version:" + version}
}

func saveFrame(file string) []string {
	return []string{"SAVE", "Name:" + file}
}

func leaveFrame(file string) []string {
	return []string{"LEAVE", "Name:" + file}
}
