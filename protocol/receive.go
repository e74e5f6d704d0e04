package protocol

import (
	"strconv"
	"strings"

	"github.com/berejant/collabsheet/contracts"
)

// replyShape describes how many Key:Value header lines a reply kind carries
// before its optional trailing message line or Length-declared payload, per
// the table in spec.md §4.4. Fields arrive out of order within that count —
// each header line is parsed independently by key, not by position.
type replyShape struct {
	headerLines int
	hasMessage  bool // one bare (non "Key:Value") line follows the headers
}

var replyShapes = map[string]replyShape{
	"CREATE OK":   {headerLines: 2}, // Name, Password
	"CREATE FAIL": {headerLines: 1, hasMessage: true},
	"JOIN OK":     {headerLines: 3}, // Name, Version, Length
	"JOIN FAIL":   {headerLines: 1, hasMessage: true},
	"CHANGE OK":   {headerLines: 2}, // Name, Version
	"CHANGE WAIT": {headerLines: 2},
	"CHANGE FAIL": {headerLines: 1, hasMessage: true},
	"UNDO OK":     {headerLines: 4}, // Name, Version, Cell, Length
	"UNDO END":    {headerLines: 2},
	"UNDO WAIT":   {headerLines: 2},
	"UNDO FAIL":   {headerLines: 1, hasMessage: true},
	"SAVE OK":     {},
	"SAVE FAIL":   {},
	"UPDATE":      {headerLines: 4}, // Name, Version, Cell, Length
	"ERROR":       {},
}

// reply is one fully-read inbound message: its first line ("kind"), its
// Key:Value headers keyed by name, an optional bare message line, an
// optional Length-declared payload, and every raw line read (for Failed
// events, which surface "the full accumulated server reply lines").
type reply struct {
	kind    string
	headers map[string]string
	message string
	payload []byte
	lines   []string
}

func (r *reply) header(key string) (string, bool) {
	value, ok := r.headers[key]
	return value, ok
}

// readReply implements the receive state machine of spec.md §4.4: Idle (no
// reply in progress) reads the kind line; InMessage accumulates header
// lines and the optional message line; InPayload reads exactly the bytes
// Length: declares. A read error (including EOF) propagates unchanged so
// the caller can distinguish ConnectionClosed from a live I/O error.
func readReply(socket contracts.Socket) (*reply, error) {
	kindLine, err := socket.ReadLine()
	if err != nil {
		return nil, err
	}

	r := &reply{kind: kindLine, headers: map[string]string{}, lines: []string{kindLine}}

	shape, known := replyShapes[kindLine]
	if !known {
		// Unrecognized first line: dispatch will treat this as GenericError.
		return r, nil
	}

	for i := 0; i < shape.headerLines; i++ {
		line, err := socket.ReadLine()
		if err != nil {
			return nil, err
		}
		r.lines = append(r.lines, line)
		if key, value, ok := splitHeader(line); ok {
			r.headers[key] = value
		}
	}

	if shape.hasMessage {
		line, err := socket.ReadLine()
		if err != nil {
			return nil, err
		}
		r.message = line
		r.lines = append(r.lines, line)
	}

	if lengthStr, ok := r.headers["Length"]; ok {
		n, err := strconv.Atoi(lengthStr)
		if err == nil {
			payload, err := socket.ReadN(n)
			if err != nil {
				return nil, err
			}
			r.payload = payload
			r.lines = append(r.lines, string(payload))
		}
	}

	return r, nil
}

func splitHeader(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}
