package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/QEStudios/famivid/convert"
	"github.com/QEStudios/famivid/video"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	// Get the current working directory.
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatalf("failed to get current working directory: %v", err)
	}

	var (
		framesDir   string
		frameName   string
		outPath     string
		profilePath string
		verbose     bool
		dumpConfig  bool
	)
	pflag.StringVarP(&framesDir, "frames", "f", "", "directory holding the video frames")
	pflag.StringVarP(&frameName, "frame-name", "n", "", "frame file name pattern, %d is the 1-based frame number")
	pflag.StringVarP(&outPath, "out", "o", "", "output path (default <music>.video.txt)")
	pflag.StringVarP(&profilePath, "profile", "p", "", "YAML profile overriding the default module layout")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "log every frame")
	pflag.BoolVar(&dumpConfig, "dump-config", false, "print the effective config and exit")
	pflag.Parse()

	cfg := convert.DefaultConfig()
	if profilePath != "" {
		cfg, err = loadProfile(profilePath, cfg)
		if err != nil {
			logger.Fatalf("profile error: %v", err)
		}
		logger.Printf("Loaded profile %s", profilePath)
	}
	if frameName != "" {
		cfg.FrameName = frameName
	}
	if dumpConfig {
		fmt.Print(spew.Sdump(cfg))
		return
	}

	// Get the path of the FamiTracker text export file.
	path, err := choosePath(cwd, pflag.Args())
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Printf("User cancelled the file dialog")
			os.Exit(1)
		}
		logger.Fatalf("failed to determine file path: %v", err)
	}

	if framesDir == "" {
		framesDir, err = chooseFramesDir(cwd)
		if err != nil {
			if errors.Is(err, dialog.ErrCancelled) {
				logger.Printf("User cancelled the directory dialog")
				os.Exit(1)
			}
			logger.Fatalf("failed to determine frame directory: %v", err)
		}
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".video.txt"
	}

	music, err := os.Open(path)
	if err != nil {
		logger.Fatalf("error opening file: %v", err)
	}
	defer music.Close()

	frames := &video.DirSource{Dir: framesDir, Name: cfg.FrameName, Threshold: cfg.Threshold}
	assembler, err := convert.NewAssembler(cfg, frames, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	assembler.Verbose = verbose

	out, err := os.Create(outPath)
	if err != nil {
		logger.Fatalf("error creating output file: %v", err)
	}

	logger.Printf("Merging %s with frames from %s", path, framesDir)
	start := time.Now()

	bw := bufio.NewWriter(out)
	stats, err := assembler.Run(music, bw)
	if err != nil {
		discard(out)
		var contractErr *convert.ContractError
		if errors.As(err, &contractErr) {
			logger.Printf("music breaks the conversion rules at line %d: %s", contractErr.Line, contractErr.Reason)
			fmt.Fprint(os.Stderr, spew.Sdump(contractErr.Row))
			os.Exit(1)
		}
		logger.Fatalf("conversion error: %v", err)
	}
	if err := bw.Flush(); err != nil {
		discard(out)
		logger.Fatalf("error writing output file: %v", err)
	}
	if err := out.Close(); err != nil {
		logger.Fatalf("error closing output file: %v", err)
	}

	logger.Printf("Wrote %s in %s", outPath, time.Since(start).Round(time.Millisecond))
	logger.Printf("%s", stats)
}

// discard closes and removes a half-written output file.
func discard(out *os.File) {
	out.Close()
	if err := os.Remove(out.Name()); err != nil {
		logger.Printf("could not remove incomplete output %s: %v", out.Name(), err)
		return
	}
	logger.Printf("Removed incomplete output %s", out.Name())
}

func loadProfile(path string, base convert.Config) (convert.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, err
	}
	defer f.Close()
	return convert.LoadProfile(f, base)
}

// choosePath resolves the music document: the first argument if there is one,
// otherwise whatever the user picks in an open dialog.
func choosePath(cwd string, args []string) (string, error) {
	if len(args) > 0 {
		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("cannot get absolute path: %w", err)
		}
		if err := validatePath(absPath); err != nil {
			return "", fmt.Errorf("music argument rejected: %w", err)
		}
		return absPath, nil
	}

	path, err := dialog.
		File().
		Title("Open FamiTracker text export").
		Filter("FamiTracker text exports (*.txt)", "txt").
		SetStartDir(cwd).
		Load()
	if err != nil {
		// dialog.ErrCancelled is handled by main.
		return "", err
	}
	if path == "" {
		return "", dialog.ErrCancelled
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot get absolute path: %w", err)
	}
	if err := validatePath(absPath); err != nil {
		return "", fmt.Errorf("music selection rejected: %w", err)
	}
	return absPath, nil
}

// chooseFramesDir asks for the directory holding the frames.
func chooseFramesDir(cwd string) (string, error) {
	dir, err := dialog.
		Directory().
		Title("Choose the video frame directory").
		SetStartDir(cwd).
		Browse()
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", dialog.ErrCancelled
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("cannot stat directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	return dir, nil
}

// validatePath accepts existing .txt files, the only kind of export
// FamiTracker writes.
func validatePath(p string) error {
	if !strings.EqualFold(filepath.Ext(p), ".txt") {
		return fmt.Errorf("%s is not a .txt text export", filepath.Base(p))
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("cannot stat music file: %w", err)
	}
	return nil
}
