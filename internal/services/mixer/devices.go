package mixer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"syscall"
)

var (
	// ErrDeviceBusy means another application holds exclusive access to the
	// device (typically third-party DJ software). Surfaced from the open
	// probe instead of guessing from vendor names.
	ErrDeviceBusy = errors.New("device is in use by another application")
	// ErrDeviceAccess means the process lacks permission to open the device.
	ErrDeviceAccess = errors.New("device access denied")
	// ErrDeviceNotFound means the requested device is not in the last scan.
	ErrDeviceNotFound = errors.New("device not found")
)

// CommandExecutor runs an external command and returns its output.
// Injected so tests can fake the ALSA tooling.
type CommandExecutor interface {
	Execute(name string, args ...string) ([]byte, error)
}

// realExecutor implements CommandExecutor using actual shell commands.
type realExecutor struct{}

func (e *realExecutor) Execute(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// PortOpener opens a raw MIDI device node for reading.
// Injected so tests can fake hardware ports.
type PortOpener interface {
	Open(path string) (io.ReadCloser, error)
}

// devOpener opens /dev/snd rawmidi nodes, mapping kernel errors onto the
// package's device error kinds.
type devOpener struct{}

func (devOpener) Open(path string) (io.ReadCloser, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		switch {
		case errors.Is(err, syscall.EBUSY):
			return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, path)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%w: %s", ErrDeviceAccess, path)
		default:
			return nil, err
		}
	}
	return f, nil
}

// amidiLine matches "amidi -l" port listings, e.g.
// "IO  hw:1,0,0  UMC404HD 192k MIDI 1"
var amidiLine = regexp.MustCompile(`^(I?O?I?)\s+hw:(\d+),(\d+)(?:,(\d+))?\s+(.+)$`)

// arecordLine matches "arecord -l" capture device listings, e.g.
// "card 1: USB [USB Audio CODEC], device 0: USB Audio [USB Audio]"
var arecordLine = regexp.MustCompile(`^card (\d+): \S+ \[([^\]]+)\], device (\d+):`)

// listMIDIDevices enumerates ALSA rawmidi input ports via amidi.
func listMIDIDevices(executor CommandExecutor) ([]Device, error) {
	output, err := executor.Execute("amidi", "-l")
	if err != nil {
		return nil, fmt.Errorf("amidi -l: %w", err)
	}

	var devices []Device
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		m := amidiLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// Only ports that can be read from.
		if !strings.Contains(m[1], "I") {
			continue
		}
		card, dev, sub := m[2], m[3], m[4]
		if sub == "" {
			sub = "0"
		}
		hw := fmt.Sprintf("hw:%s,%s,%s", card, dev, sub)
		devices = append(devices, Device{
			ID:   "midi:" + hw,
			Name: strings.TrimSpace(m[5]),
			Type: DeviceMIDI,
			Path: fmt.Sprintf("/dev/snd/midiC%sD%s", card, dev),
		})
	}
	return devices, nil
}

// listAudioDevices enumerates ALSA capture devices via arecord.
func listAudioDevices(executor CommandExecutor) ([]Device, error) {
	output, err := executor.Execute("arecord", "-l")
	if err != nil {
		return nil, fmt.Errorf("arecord -l: %w", err)
	}

	var devices []Device
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		m := arecordLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		hw := fmt.Sprintf("hw:%s,%s", m[1], m[3])
		devices = append(devices, Device{
			ID:   "audio:" + hw,
			Name: strings.TrimSpace(m[2]),
			Type: DeviceAudio,
			Path: hw,
		})
	}
	return devices, nil
}

// dedupeDevices drops devices whose ID already appeared, preserving order.
func dedupeDevices(devices []Device) []Device {
	seen := make(map[string]bool, len(devices))
	result := devices[:0]
	for _, d := range devices {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		result = append(result, d)
	}
	return result
}
