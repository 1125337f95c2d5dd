// Package midi provides raw MIDI 1.0 byte-stream parsing and message building.
package midi

import (
	"math"
)

const (
	// StatusControlChange is the status nibble for control-change messages.
	StatusControlChange byte = 0xB0
	// StatusNoteOn is the status nibble for note-on messages.
	StatusNoteOn byte = 0x90
	// StatusNoteOff is the status nibble for note-off messages.
	StatusNoteOff byte = 0x80
	// MaxValue is the largest 7-bit MIDI data value.
	MaxValue = 127
)

// Kind identifies the message type.
type Kind int

const (
	KindControlChange Kind = iota
	KindNoteOn
	KindNoteOff
)

// Message is a decoded channel voice message.
type Message struct {
	Kind    Kind
	Channel byte // 0-15
	Data1   byte // controller number or note number
	Data2   byte // controller value or velocity
}

// Controller returns the controller number of a control-change message.
func (m Message) Controller() byte { return m.Data1 }

// Value returns the controller value of a control-change message.
func (m Message) Value() byte { return m.Data2 }

// Note returns the note number of a note-on/off message.
func (m Message) Note() byte { return m.Data1 }

// Normalize maps a 7-bit MIDI value onto the 0-100 range used by the
// console's mixer parameters.
func Normalize(value byte) int {
	if value > MaxValue {
		value = MaxValue
	}
	return int(math.Round(float64(value) / MaxValue * 100))
}

// BuildControlChange encodes a control-change message.
func BuildControlChange(channel, controller, value byte) []byte {
	return []byte{StatusControlChange | (channel & 0x0F), controller & 0x7F, value & 0x7F}
}

// BuildNoteOn encodes a note-on message.
func BuildNoteOn(channel, note, velocity byte) []byte {
	return []byte{StatusNoteOn | (channel & 0x0F), note & 0x7F, velocity & 0x7F}
}

// BuildNoteOff encodes a note-off message.
func BuildNoteOff(channel, note byte) []byte {
	return []byte{StatusNoteOff | (channel & 0x0F), note & 0x7F, 0}
}

// Parser decodes an incoming raw MIDI byte stream. It tolerates running
// status (data bytes reusing the previous status byte, which ALSA rawmidi
// devices emit freely) and discards system real-time and system common
// bytes that can be interleaved anywhere in the stream.
type Parser struct {
	status byte
	data   [2]byte
	have   int
}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes a chunk of raw bytes and returns the complete messages
// decoded from it. Partial messages are buffered for the next call.
func (p *Parser) Feed(chunk []byte) []Message {
	var messages []Message
	for _, b := range chunk {
		if b >= 0xF8 {
			// System real-time, may appear mid-message; ignore.
			continue
		}
		if b >= 0xF0 {
			// System common cancels running status.
			p.status = 0
			p.have = 0
			continue
		}
		if b&0x80 != 0 {
			p.status = b
			p.have = 0
			continue
		}

		// Data byte without a known status: garbage, skip.
		if p.status == 0 {
			continue
		}

		p.data[p.have] = b
		p.have++
		if p.have < 2 {
			continue
		}
		p.have = 0 // running status: keep p.status for the next pair

		msg, ok := p.message()
		if ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

func (p *Parser) message() (Message, bool) {
	channel := p.status & 0x0F
	switch p.status & 0xF0 {
	case StatusControlChange:
		return Message{Kind: KindControlChange, Channel: channel, Data1: p.data[0], Data2: p.data[1]}, true
	case StatusNoteOn:
		// Note-on with zero velocity is a note-off by convention.
		if p.data[1] == 0 {
			return Message{Kind: KindNoteOff, Channel: channel, Data1: p.data[0]}, true
		}
		return Message{Kind: KindNoteOn, Channel: channel, Data1: p.data[0], Data2: p.data[1]}, true
	case StatusNoteOff:
		return Message{Kind: KindNoteOff, Channel: channel, Data1: p.data[0], Data2: p.data[1]}, true
	}
	return Message{}, false
}
