// ABOUTME: Playback controller owning the output pipeline and the main event loop
// ABOUTME: Handles transfer completions, staging populates and front panel commands
package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pwmaudio/pwmaudio-go/internal/audio"
	"github.com/pwmaudio/pwmaudio-go/internal/events"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
	"github.com/pwmaudio/pwmaudio-go/internal/ring"
	"github.com/pwmaudio/pwmaudio-go/internal/source"
	"github.com/pwmaudio/pwmaudio-go/internal/staging"
	"github.com/pwmaudio/pwmaudio-go/internal/storage"
	"github.com/pwmaudio/pwmaudio-go/internal/wave"
)

// ErrUnknownEvent is returned from Run when an event of an unknown kind is received
var ErrUnknownEvent = errors.New("player: unknown event")

// Config holds controller configuration
type Config struct {
	Pin         int      // Left channel GPIO; right is Pin+1
	Files       []string // Playlist; empty means every .wav in the storage root
	Initial     State
	Volume      float64
	Clip        string // WAV loaded into memory for the memory state; empty uses the built-in chime
	MemoryRate  int    // Overrides the memory clip's sample rate when non-zero
	TransferLen int    // Words per transfer buffer
	StagingLen  int    // Samples per staging half
	QueueLen    int
	Seed        uint64        // Noise seed
	Debounce    time.Duration // Button settle time; zero disables
}

// DefaultConfig returns the settings used by the command line player
func DefaultConfig() Config {
	return Config{
		Pin:         18,
		Volume:      0.8,
		TransferLen: 1024,
		StagingLen:  4096,
		QueueLen:    16,
		Seed:        1,
		Debounce:    events.DefaultDebounce,
	}
}

func (c Config) validate() error {
	if c.TransferLen <= 0 {
		return fmt.Errorf("transfer length %d must be positive", c.TransferLen)
	}
	if c.StagingLen <= 0 || c.StagingLen%2 != 0 {
		return fmt.Errorf("staging length %d must be positive and even", c.StagingLen)
	}
	if c.QueueLen < 4 {
		return fmt.Errorf("queue length %d too small", c.QueueLen)
	}
	return nil
}

// Stats counts pipeline activity
type Stats struct {
	Underruns     uint64 // Engine stalls on an unarmed buffer
	StagingLate   uint64 // Staging halves replayed
	Refills       uint64
	StaleRefills  uint64
	IRQsRetried   uint64
	QueueDropped  uint64
	SourceChanges uint64
	Failures      uint64 // States skipped because they could not start
}

// Status is a snapshot for display
type Status struct {
	Session string
	State   State
	Source  string
	Format  audio.Format
	PWM     pwm.Config
	Volume  float64
	Running bool
	Files   []string
	Stats   Stats
	Levels  map[pwm.ChannelID]uint16
	Uptime  time.Duration
}

// Controller runs the playback state machine
type Controller struct {
	cfg     Config
	storage *storage.Mount
	files   []string
	memory  *source.Circular

	driver  *pwm.Driver
	staging *staging.Buffer
	ring    *ring.Ring
	queue   *events.Queue
	volume  *audio.Volume
	buttons *events.Debouncer

	state      State
	src        *source.Source
	generation int
	session    uuid.UUID
	started    time.Time

	mu     sync.Mutex
	stats  Stats
	status Status
}

// New mounts storage, loads the memory clip and builds a stopped output pipeline
func New(cfg Config, mount *storage.Mount) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := mount.Mount(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:     cfg,
		storage: mount,
		queue:   events.NewQueue(cfg.QueueLen),
		volume:  audio.NewVolume(cfg.Volume),
		buttons: events.NewDebouncer(cfg.Debounce),
		src:     source.Silent(),
		state:   Off,
	}

	if err := c.loadPlaylist(); err != nil {
		mount.Unmount()
		return nil, err
	}
	if err := c.loadMemory(); err != nil {
		mount.Unmount()
		return nil, err
	}

	pcfg, err := pwm.ComputeConfig(source.NoiseSampleRate)
	if err != nil {
		mount.Unmount()
		return nil, err
	}

	c.driver, err = pwm.NewDriver(cfg.Pin, true, cfg.TransferLen, pcfg)
	if err != nil {
		mount.Unmount()
		return nil, fmt.Errorf("failed to create output driver: %w", err)
	}
	c.driver.Engine().SetIRQHandler(c.transferComplete)

	c.staging, err = staging.New(make([]uint16, cfg.StagingLen), make([]uint16, cfg.StagingLen), c.src)
	if err != nil {
		mount.Unmount()
		return nil, err
	}

	c.ring, err = ring.New(c.driver, c.staging, c.volume, pcfg, 1, c.requestPopulate)
	if err != nil {
		mount.Unmount()
		return nil, err
	}

	c.publish()
	return c, nil
}

func (c *Controller) loadPlaylist() error {
	if len(c.cfg.Files) > 0 {
		c.files = append([]string(nil), c.cfg.Files...)
		return nil
	}

	files, err := c.storage.WaveFiles()
	if err != nil {
		return err
	}
	c.files = files
	log.Printf("Found %d WAV files", len(files))
	return nil
}

func (c *Controller) loadMemory() error {
	if c.cfg.Clip == "" {
		c.memory = source.Chime()
	} else {
		fsys, err := c.storage.FS()
		if err != nil {
			return err
		}
		f, err := wave.Open(fsys, c.cfg.Clip)
		if err != nil {
			return fmt.Errorf("failed to load memory clip: %w", err)
		}
		defer f.Close()

		c.memory, err = source.LoadWave(f)
		if err != nil {
			return fmt.Errorf("failed to load memory clip: %w", err)
		}
	}

	if c.cfg.MemoryRate > 0 {
		c.memory = c.memory.WithRate(c.cfg.MemoryRate)
	}
	return nil
}

// transferComplete is the DMA completion interrupt: it only signals the main loop
func (c *Controller) transferComplete(index int) bool {
	return c.queue.TrySend(events.Event{Kind: events.TransferComplete, Index: index})
}

// requestPopulate is called by the ring when it moves to the other staging half
func (c *Controller) requestPopulate() {
	if c.queue.TrySend(events.Event{Kind: events.PopulateStaging, Index: c.generation}) {
		return
	}
	// Queue full; populate now rather than replay stale samples
	c.staging.PopulateNext()
}

// Command queues a front panel command. Quit waits for queue space until ctx is
// done; other buttons are dropped when debounced or when the queue is full.
func (c *Controller) Command(ctx context.Context, kind events.Kind) bool {
	ev := events.Event{Kind: kind}
	if kind == events.Quit {
		if err := c.queue.Send(ctx, ev); err != nil {
			log.Printf("Command %s not delivered: %v", kind, err)
			return false
		}
		return true
	}

	if !c.buttons.Press(kind) {
		return false
	}
	ok := c.queue.TrySend(ev)
	if !ok {
		log.Printf("Command %s dropped: queue full", kind)
	}
	return ok
}

// Driver returns the output driver for a hardware context to run
func (c *Controller) Driver() *pwm.Driver {
	return c.driver
}

// Run starts the initial state and handles events until Quit or ctx is done.
// Output is stopped, the source closed and storage unmounted before it returns.
func (c *Controller) Run(ctx context.Context) error {
	defer c.shutdown()

	c.started = time.Now()
	c.enter(c.cfg.Initial)

	for {
		ev, err := c.queue.Receive(ctx)
		if err != nil {
			log.Printf("Main loop stopping: %v", err)
			return nil
		}

		quit, err := c.handle(ev)
		if err != nil {
			return err
		}
		c.publish()
		if quit {
			return nil
		}
	}
}

// handle processes one event. It reports true when the loop should exit.
func (c *Controller) handle(ev events.Event) (bool, error) {
	switch ev.Kind {
	case events.TransferComplete:
		if err := c.ring.Refill(ev.Index); err != nil {
			if errors.Is(err, ring.ErrOutOfOrder) || errors.Is(err, pwm.ErrBufferArmed) {
				return false, nil
			}
			return false, fmt.Errorf("refill buffer %d: %w", ev.Index, err)
		}
		c.checkSource()

	case events.PopulateStaging:
		if ev.Index != c.generation {
			// Raised before the last source change
			return false, nil
		}
		c.staging.PopulateNext()
		c.checkSource()

	case events.VolumeUp:
		log.Printf("Volume: %.2f", c.volume.Step(audio.VolumeStep))

	case events.VolumeDown:
		log.Printf("Volume: %.2f", c.volume.Step(-audio.VolumeStep))

	case events.ChangeSource:
		c.enter(c.state.Next(len(c.files)))

	case events.Quit:
		log.Printf("Quit requested")
		return true, nil

	default:
		return false, fmt.Errorf("%w: %v", ErrUnknownEvent, ev.Kind)
	}

	return false, nil
}

// checkSource moves on when the playing file has failed
func (c *Controller) checkSource() {
	if err := c.src.Err(); err != nil {
		log.Printf("Source %s failed, advancing: %v", c.src.Name(), err)
		c.addFailure()
		c.enter(c.state.Next(len(c.files)))
	}
}

// enter switches to state, falling through to following states until one starts
func (c *Controller) enter(state State) {
	defer c.publish()

	for tries := 0; ; tries++ {
		err := c.start(state)
		if err == nil {
			return
		}

		log.Printf("Cannot play %s: %v", state, err)
		c.addFailure()
		if state == Off || tries > len(c.files)+5 {
			// Off always starts; this only guards against a broken cycle
			return
		}
		state = state.Next(len(c.files))
	}
}

// start performs the source change sequence: stop, configure for the new source's
// rate, re-prime staging, fill both transfer buffers and start output
func (c *Controller) start(state State) error {
	c.driver.Stop()

	src, err := c.open(state)
	if err != nil {
		return err
	}

	pcfg, err := pwm.ComputeConfig(src.Format().SampleRate)
	if err != nil {
		src.Close()
		return err
	}
	if err := c.driver.Reconfigure(pcfg); err != nil {
		src.Close()
		return err
	}

	c.staging.Restart(src)
	if err := src.Err(); err != nil {
		src.Close()
		return err
	}

	if err := c.ring.Reset(pcfg, src.Channels()); err != nil {
		src.Close()
		return err
	}

	old := c.src
	c.src = src
	c.state = state
	c.generation++
	if old != src {
		if err := old.Close(); err != nil {
			log.Printf("Failed to close %s: %v", old.Name(), err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := c.ring.Refill(i); err != nil {
			return fmt.Errorf("prime transfer buffer %d: %w", i, err)
		}
	}

	c.session = uuid.New()
	c.mu.Lock()
	c.stats.SourceChanges++
	c.mu.Unlock()

	if state.Mode == ModeOff {
		log.Printf("Output off (session %s)", c.session)
		return nil
	}

	c.driver.Start()
	log.Printf("Playing %s: %s at %s (session %s)", state, src.Name(), pcfg, c.session)
	return nil
}

// open creates the sample source for state
func (c *Controller) open(state State) (*source.Source, error) {
	if colour, ok := state.Colour(); ok {
		return source.NewNoise(colour, c.cfg.Seed), nil
	}

	switch state.Mode {
	case ModeOff:
		return source.Silent(), nil
	case ModeMemory:
		return source.NewMemory(c.memory), nil
	case ModeFile:
		if state.Index >= len(c.files) {
			return nil, fmt.Errorf("no file at index %d", state.Index)
		}
		fsys, err := c.storage.FS()
		if err != nil {
			return nil, err
		}
		f, err := wave.Open(fsys, c.files[state.Index])
		if err != nil {
			return nil, err
		}
		return source.NewFile(f), nil
	}

	return nil, fmt.Errorf("unknown state %s", state)
}

func (c *Controller) addFailure() {
	c.mu.Lock()
	c.stats.Failures++
	c.mu.Unlock()
}

// shutdown stops output, closes the source and unmounts storage
func (c *Controller) shutdown() {
	c.driver.Stop()
	if err := c.src.Close(); err != nil {
		log.Printf("Failed to close %s: %v", c.src.Name(), err)
	}
	c.storage.Unmount()
	c.publish()

	s := c.Stats()
	log.Printf("Stopped: %d refills, %d underruns, %d late staging halves, %d dropped events",
		s.Refills, s.Underruns, s.StagingLate, s.QueueDropped)
}

// publish refreshes the status snapshot read by the front panel
func (c *Controller) publish() {
	es := c.driver.Stats()
	rs := c.ring.Stats()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Underruns = es.Underruns
	c.stats.IRQsRetried = es.IRQsDropped
	c.stats.Refills = rs.Refills
	c.stats.StaleRefills = rs.StaleRefills
	c.stats.StagingLate = rs.StagingLate
	c.stats.QueueDropped = c.queue.Dropped()

	var uptime time.Duration
	if !c.started.IsZero() {
		uptime = time.Since(c.started)
	}

	c.status = Status{
		Session: c.session.String(),
		State:   c.state,
		Source:  c.src.Name(),
		Format:  c.src.Format(),
		PWM:     c.driver.Config(),
		Volume:  c.volume.Load(),
		Running: c.driver.Running(),
		Files:   c.files,
		Stats:   c.stats,
		Uptime:  uptime,
	}
}

// State returns the current playback state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State
}

// Volume returns the current volume
func (c *Controller) Volume() float64 {
	return c.volume.Load()
}

// Stats returns a snapshot of the pipeline counters
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Status returns the latest status snapshot with live output levels
func (c *Controller) Status() Status {
	c.mu.Lock()
	s := c.status
	c.mu.Unlock()

	s.Levels = c.driver.Levels()
	s.Volume = c.volume.Load()
	return s
}
