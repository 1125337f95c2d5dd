package mixer

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/openairwaves/onair-go/pkg/midi"
)

// Callbacks are invoked by the service as controller input arrives. All of
// them may be nil. OnControlChange and OnDisconnect are called from the
// device read goroutine and must not block.
type Callbacks struct {
	// OnControlChange fires for every recognized control movement with the
	// normalized 0-100 value.
	OnControlChange func(operatorID string, control Control, value int)
	// OnGoLive fires when the controller's go-live pad arms the console.
	OnGoLive func(operatorID string) error
	// OnStop fires when the console is disarmed from the controller.
	OnStop func(operatorID string) error
	// OnDisconnect fires when the active device drops.
	OnDisconnect func(device Device)
}

// Service owns hardware device discovery and the connection to one active
// controller. Controller state is ephemeral and lives only here.
type Service struct {
	executor  CommandExecutor
	opener    PortOpener
	callbacks Callbacks

	mu       sync.RWMutex
	devices  []Device
	active   *Device
	port     io.ReadCloser
	status   Status
	scanning bool
	operator string
}

// NewService creates a mixer service. Passing nil for the executor or the
// opener selects the real ALSA implementations.
func NewService(executor CommandExecutor, opener PortOpener, callbacks Callbacks) *Service {
	if executor == nil {
		executor = &realExecutor{}
	}
	if opener == nil {
		opener = devOpener{}
	}
	return &Service{
		executor:  executor,
		opener:    opener,
		callbacks: callbacks,
	}
}

// SetOperator binds controller input to a console user. Control changes and
// transport pads act on behalf of this user until rebound.
func (s *Service) SetOperator(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operator = userID
}

// Operator returns the currently bound console user, if any.
func (s *Service) Operator() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.operator
}

// ScanForDevices enumerates MIDI controllers and audio capture devices.
// A failing source is logged and skipped so one missing tool doesn't hide
// the other's devices; the scan errors only when every source fails.
func (s *Service) ScanForDevices(ctx context.Context) ([]Device, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, fmt.Errorf("scan already in progress")
	}
	s.scanning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	var devices []Device
	var failures []error

	if midiDevices, err := listMIDIDevices(s.executor); err != nil {
		log.Printf("mixer: MIDI scan failed: %v", err)
		failures = append(failures, err)
	} else {
		devices = append(devices, midiDevices...)
	}

	if audioDevices, err := listAudioDevices(s.executor); err != nil {
		log.Printf("mixer: audio scan failed: %v", err)
		failures = append(failures, err)
	} else {
		devices = append(devices, audioDevices...)
	}

	if len(failures) == 2 {
		return nil, fmt.Errorf("device scan failed: %v", failures)
	}

	devices = dedupeDevices(devices)

	s.mu.Lock()
	s.devices = devices
	s.mu.Unlock()

	log.Printf("🎛️  Found %d hardware device(s)", len(devices))
	return devices, nil
}

// Devices returns the results of the last scan.
func (s *Service) Devices() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Device(nil), s.devices...)
}

// IsScanning reports whether a scan is currently running.
func (s *Service) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// Connect opens a device from the last scan and makes it the active
// controller. The open doubles as the availability probe: a port held by
// other software surfaces as ErrDeviceBusy here rather than being filtered
// out of the scan by name. Connecting replaces any previous connection.
func (s *Service) Connect(ctx context.Context, deviceID string) error {
	s.mu.RLock()
	var device *Device
	for i := range s.devices {
		if s.devices[i].ID == deviceID {
			device = &s.devices[i]
			break
		}
	}
	s.mu.RUnlock()

	if device == nil {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	if device.Type != DeviceMIDI {
		// Audio devices carry no control stream; just record the selection.
		s.Disconnect()
		s.mu.Lock()
		s.active = device
		s.mu.Unlock()
		log.Printf("🎛️  Selected audio device %s", device.Name)
		return nil
	}

	port, err := s.opener.Open(device.Path)
	if err != nil {
		return err
	}

	s.Disconnect()

	s.mu.Lock()
	s.active = device
	s.port = port
	s.mu.Unlock()

	go s.readLoop(*device, port)
	log.Printf("🎛️  Connected to %s", device.Name)
	return nil
}

// Disconnect closes the active device, if any.
func (s *Service) Disconnect() {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.active = nil
	s.mu.Unlock()

	if port != nil {
		port.Close()
	}
}

// ActiveDevice returns the connected device, or nil.
func (s *Service) ActiveDevice() *Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil
	}
	d := *s.active
	return &d
}

// Status returns a snapshot of the mixer state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ToggleLive arms or disarms the console and reports the new state. The
// transition callback runs first; if it fails the flag is left unchanged.
func (s *Service) ToggleLive() (bool, error) {
	s.mu.Lock()
	next := !s.status.IsLive
	operator := s.operator
	s.mu.Unlock()

	var err error
	if next {
		if s.callbacks.OnGoLive != nil {
			err = s.callbacks.OnGoLive(operator)
		}
	} else {
		if s.callbacks.OnStop != nil {
			err = s.callbacks.OnStop(operator)
		}
	}
	if err != nil {
		return !next, fmt.Errorf("live transition failed: %w", err)
	}

	s.mu.Lock()
	s.status.IsLive = next
	s.mu.Unlock()
	return next, nil
}

// HandleMessage applies one decoded controller message to the mixer state.
// Exposed for the read loop and for tests feeding synthetic input.
func (s *Service) HandleMessage(msg midi.Message) {
	switch msg.Kind {
	case midi.KindControlChange:
		s.handleControlChange(msg)
	case midi.KindNoteOn:
		s.handleNoteOn(msg)
	case midi.KindNoteOff:
		// Pad release, nothing to do.
	}
}

func (s *Service) handleControlChange(msg midi.Message) {
	control, ok := controllerMap[msg.Controller()]
	if !ok {
		log.Printf("mixer: unmapped controller %d (value %d)", msg.Controller(), msg.Value())
		return
	}
	value := midi.Normalize(msg.Value())

	s.mu.Lock()
	switch control {
	case ControlCrossfader:
		s.status.Crossfader = value
	case ControlMasterVolume:
		s.status.MasterVolume = value
	case ControlChannel1:
		s.status.Channel1Volume = value
	case ControlChannel2:
		s.status.Channel2Volume = value
	case ControlMicLevel:
		s.status.MicLevel = value
	}
	s.status.LastChange = &ControlChange{
		Control:   control,
		Value:     value,
		Timestamp: time.Now(),
	}
	operator := s.operator
	s.mu.Unlock()

	if s.callbacks.OnControlChange != nil && operator != "" {
		s.callbacks.OnControlChange(operator, control, value)
	}
}

func (s *Service) handleNoteOn(msg midi.Message) {
	switch msg.Note() {
	case NoteGoLive:
		if _, err := s.ToggleLive(); err != nil {
			log.Printf("mixer: go-live pad: %v", err)
		}
	case NoteStop:
		s.mu.RLock()
		live := s.status.IsLive
		s.mu.RUnlock()
		if live {
			if _, err := s.ToggleLive(); err != nil {
				log.Printf("mixer: stop pad: %v", err)
			}
		}
	default:
		log.Printf("mixer: unmapped note 0x%02X", msg.Note())
	}
}

// readLoop decodes the raw MIDI stream from an open port until it drops.
func (s *Service) readLoop(device Device, port io.ReadCloser) {
	parser := midi.NewParser()
	buf := make([]byte, 64)

	for {
		n, err := port.Read(buf)
		if n > 0 {
			for _, msg := range parser.Feed(buf[:n]) {
				s.HandleMessage(msg)
			}
		}
		if err != nil {
			break
		}
	}

	s.mu.Lock()
	wasActive := s.active != nil && s.active.ID == device.ID
	if wasActive {
		s.active = nil
		s.port = nil
	}
	s.mu.Unlock()

	if wasActive {
		log.Printf("mixer: device %s disconnected", device.Name)
		if s.callbacks.OnDisconnect != nil {
			s.callbacks.OnDisconnect(device)
		}
	}
}
