// Package mixer bridges hardware DJ controllers into the broadcast console.
package mixer

import (
	"time"
)

// DeviceType distinguishes MIDI controllers from audio capture devices.
type DeviceType string

const (
	DeviceMIDI  DeviceType = "MIDI"
	DeviceAudio DeviceType = "AUDIO"
)

// Device is a discovered hardware input.
type Device struct {
	ID   string     `json:"id"`   // stable within a scan, e.g. "midi:hw:1,0,0"
	Name string     `json:"name"` // human-readable device name
	Type DeviceType `json:"type"`
	Path string     `json:"path"` // raw device node for MIDI, ALSA name for audio
}

// Control identifies a mixer parameter driven by the controller.
type Control string

const (
	ControlCrossfader   Control = "crossfader"
	ControlMasterVolume Control = "masterVolume"
	ControlChannel1     Control = "channel1Volume"
	ControlChannel2     Control = "channel2Volume"
	ControlMicLevel     Control = "micLevel"
)

// controllerMap is the fixed control-change number table for supported
// controllers. Numbers outside the table are logged only.
var controllerMap = map[byte]Control{
	1:  ControlCrossfader,
	7:  ControlMasterVolume,
	14: ControlChannel1,
	15: ControlChannel2,
	16: ControlMicLevel,
}

// Note numbers carrying transport semantics on supported controllers.
const (
	NoteGoLive byte = 0x24
	NoteStop   byte = 0x25
)

// ControlChange is the last recognized controller movement.
type ControlChange struct {
	Control   Control   `json:"control"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the ephemeral mixer state, rebuilt entirely from incoming
// controller messages. Levels are 0-100.
type Status struct {
	Crossfader     int            `json:"crossfader"`
	Channel1Volume int            `json:"channel1Volume"`
	Channel2Volume int            `json:"channel2Volume"`
	MasterVolume   int            `json:"masterVolume"`
	MicLevel       int            `json:"micLevel"`
	IsLive         bool           `json:"isLive"`
	LastChange     *ControlChange `json:"lastChange"`
}
