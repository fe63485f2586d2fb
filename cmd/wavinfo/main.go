// ABOUTME: WAV header inspection tool
// ABOUTME: Prints the format of each file and whether the player can stream it
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pwmaudio/pwmaudio-go/internal/pwm"
	"github.com/pwmaudio/pwmaudio-go/internal/storage"
	"github.com/pwmaudio/pwmaudio-go/internal/version"
	"github.com/pwmaudio/pwmaudio-go/internal/wave"
)

var (
	dir         = flag.String("dir", ".", "Directory to scan when no files are given")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\nusage: wavinfo [-dir DIR] [file.wav ...]\n", version.Banner("wavinfo"))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Banner("wavinfo"))
		return
	}

	failed := 0
	if flag.NArg() > 0 {
		for _, path := range flag.Args() {
			mount := storage.NewDir(filepath.Dir(path))
			if !report(mount, filepath.Base(path)) {
				failed++
			}
		}
	} else {
		mount := storage.NewDir(*dir)
		if err := mount.Mount(); err != nil {
			fmt.Fprintf(os.Stderr, "wavinfo: %v\n", err)
			os.Exit(1)
		}
		names, err := mount.WaveFiles()
		if err != nil {
			fmt.Fprintf(os.Stderr, "wavinfo: %v\n", err)
			os.Exit(1)
		}
		for _, name := range names {
			if !report(mount, name) {
				failed++
			}
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// report prints one file's header. It reports false when the file cannot be played.
func report(mount *storage.Mount, name string) bool {
	if err := mount.Mount(); err != nil {
		fmt.Printf("%s: %v\n", name, err)
		return false
	}
	fsys, _ := mount.FS()

	f, err := wave.Open(fsys, name)
	if err != nil {
		fmt.Printf("%s: %s\n", name, describe(err))
		return false
	}
	defer f.Close()

	duration := time.Duration(f.Duration() * float64(time.Second))
	fmt.Printf("%s: %d Hz, %d channels, %d-bit, %d frames (%s), data %d bytes at offset %d\n",
		name, f.SampleRate, f.Channels, f.BitsPerSample, f.Frames(), duration.Round(time.Millisecond),
		f.DataSize, f.DataOffset)

	cfg, err := pwm.ComputeConfig(f.SampleRate)
	if err != nil {
		fmt.Printf("  not playable: %v\n", err)
		return false
	}
	fmt.Printf("  output: %s\n", cfg)
	return true
}

func describe(err error) string {
	switch {
	case errors.Is(err, wave.ErrNotFound):
		return "file not found"
	case errors.Is(err, wave.ErrBadRIFF), errors.Is(err, wave.ErrBadWaveTag):
		return fmt.Sprintf("not a WAV file (%v)", err)
	default:
		return err.Error()
	}
}
