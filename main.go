// ABOUTME: Entry point for the PWM audio player
// ABOUTME: Parses CLI flags, picks a hardware context and runs the playback controller
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pwmaudio/pwmaudio-go/internal/events"
	"github.com/pwmaudio/pwmaudio-go/internal/player"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
	"github.com/pwmaudio/pwmaudio-go/internal/pwm/otoout"
	"github.com/pwmaudio/pwmaudio-go/internal/storage"
	"github.com/pwmaudio/pwmaudio-go/internal/ui"
	"github.com/pwmaudio/pwmaudio-go/internal/version"
	"golang.org/x/term"
)

var (
	dir         = flag.String("dir", ".", "Storage root holding WAV files")
	files       = flag.String("files", "", "Comma separated playlist (default: every .wav in -dir)")
	pin         = flag.Int("pin", 18, "GPIO for the left channel; right uses pin+1")
	initial     = flag.String("source", "off", "Initial state: off, white, pink, brown, memory, file or file:N")
	volume      = flag.Float64("volume", 0.8, "Initial volume (0-1)")
	memoryRate  = flag.Int("memory-rate", 0, "Override the memory clip sample rate")
	clip        = flag.String("clip", "", "WAV file in -dir to hold in memory for the memory state (default: built-in chime)")
	transferLen = flag.Int("transfer-len", 1024, "Words per DMA transfer buffer")
	stagingLen  = flag.Int("staging-len", 4096, "Samples per staging half")
	queueLen    = flag.Int("queue", 16, "Event queue capacity")
	seed        = flag.Uint64("seed", 1, "Noise generator seed")
	debounce    = flag.Duration("debounce", events.DefaultDebounce, "Button debounce window (0 disables)")
	headless    = flag.Bool("headless", false, "Pace output with a timer instead of an audio device")
	logFile     = flag.String("log-file", "pwmaudio.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, read commands from stdin and stream logs")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Banner(""))
		return
	}

	// The panel needs a terminal; fall back to streaming logs when piped
	useTUI := !*noTUI && term.IsTerminal(int(os.Stdout.Fd()))

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		multiWriter := io.MultiWriter(os.Stdout, f)
		log.SetOutput(multiWriter)
	}

	log.Printf("Starting %s", version.Banner(""))

	state, err := player.ParseState(*initial)
	if err != nil {
		log.Fatalf("Invalid -source: %v", err)
	}

	cfg := player.DefaultConfig()
	cfg.Pin = *pin
	cfg.Initial = state
	cfg.Volume = *volume
	cfg.Clip = *clip
	cfg.MemoryRate = *memoryRate
	cfg.TransferLen = *transferLen
	cfg.StagingLen = *stagingLen
	cfg.QueueLen = *queueLen
	cfg.Seed = *seed
	cfg.Debounce = *debounce
	if *files != "" {
		for _, name := range strings.Split(*files, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Files = append(cfg.Files, name)
			}
		}
	}

	ctl, err := player.New(cfg, storage.NewDir(*dir))
	if err != nil {
		log.Fatalf("Failed to start player: %v", err)
	}

	meter := &pwm.Meter{}
	var hardware player.Runner
	if *headless {
		log.Printf("Headless output paced by timer")
		hardware = pwm.NewPacer(ctl.Driver(), pwm.DefaultPacerInterval, meter).Run
	} else {
		out, err := otoout.New(ctl.Driver(), meter)
		if err != nil {
			log.Fatalf("Failed to open audio device (try -headless): %v", err)
		}
		hardware = out.Run
	}

	runners := []player.Runner{hardware, signals(ctl)}
	if useTUI {
		runners = append(runners, func(ctx context.Context) error {
			return ui.Run(ctx, ctl, meter)
		})
	} else {
		log.Printf("Commands: up, down, next, quit")
		runners = append(runners, commands(ctl, os.Stdin))
	}

	if err := player.Serve(context.Background(), ctl, runners...); err != nil {
		log.Fatalf("Player stopped: %v", err)
	}

	log.Printf("Player stopped")
}

// signals turns SIGINT and SIGTERM into a Quit command. It keeps the signals
// caught until the player has shut down.
func signals(ctl *player.Controller) player.Runner {
	return func(ctx context.Context) error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		for {
			select {
			case <-sigChan:
				log.Printf("Shutdown signal received")
				ctl.Command(ctx, events.Quit)
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// commands reads one command per line and queues it
func commands(ctl *player.Controller, r io.Reader) player.Runner {
	return func(ctx context.Context) error {
		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				line = strings.ToLower(strings.TrimSpace(line))
				if line == "" {
					continue
				}
				kind, ok := events.ParseCommand(line)
				if !ok {
					fmt.Fprintf(os.Stderr, "unknown command %q (up, down, next, quit)\n", line)
					continue
				}
				ctl.Command(ctx, kind)
			}
		}
	}
}
