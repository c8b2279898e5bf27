package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	tea "charm.land/bubbletea/v2"

	"spectrecon/internal/logging"
	"spectrecon/internal/ui"
	"spectrecon/pkg/config"
	"spectrecon/pkg/reconstruction"
	"spectrecon/pkg/session"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", config.DefaultPath(), "Path to the YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	inputFile := flag.String("input", "", "SPECT DICOM acquisition to open")
	headless := flag.Bool("headless", false, "Run without the terminal UI")
	list := flag.Bool("list", false, "Print the energy windows of -input and exit")
	mainWindow := flag.Int("main", -1, "Index of the main (photopeak) window")
	scatter := flag.String("scatter", "", "Comma-separated indices of up to two scatter windows")
	iterations := flag.Int("iterations", 0, "Number of OSEM iterations (default from config)")
	subsets := flag.Int("subsets", 0, "Number of OSEM subsets (default from config)")
	outputDir := flag.String("output", "", "Parent directory for saved reconstructions (default from config)")
	name := flag.String("name", "", "Folder name for the saved reconstruction; empty skips saving")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	applyFlags(cfg, explicit, *iterations, *subsets, *outputDir)

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// The terminal UI owns the screen, so it logs to a file
	interactive := !*headless && !*list
	logDir := ""
	if interactive {
		logDir = cfg.Logging.Directory
	}
	logger, closeLog := logging.Setup(logDir, level, os.Stderr)
	defer closeLog()

	engine := reconstruction.NewReconstructor(&reconstruction.Params{
		Command:     cfg.Engine.Command,
		Args:        cfg.Engine.Args,
		Timeout:     cfg.Engine.Timeout,
		ScratchDir:  cfg.Engine.ScratchDir,
		KeepScratch: cfg.Engine.KeepScratch,
	}, logger)

	previewScale := 0
	if cfg.Output.Previews {
		previewScale = cfg.Output.PreviewScale
	}
	sess := session.New(session.Options{
		Engine:       engine,
		PreviewScale: previewScale,
		Logger:       logger,
	})

	if !interactive {
		if *inputFile == "" {
			flag.Usage()
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		job := headlessJob{
			Input:      *inputFile,
			List:       *list,
			Main:       *mainWindow,
			Scatter:    *scatter,
			Iterations: cfg.Reconstruction.Iterations,
			Subsets:    cfg.Reconstruction.Subsets,
			OutputDir:  cfg.Output.Directory,
			Name:       *name,
		}
		if err := runHeadless(ctx, sess, job, os.Stdout); err != nil {
			logger.Error("headless run failed", "error", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("starting spectrecon", "config", *configPath)
	model := ui.New(sess, ui.Options{
		StudyPath:  *inputFile,
		Iterations: cfg.Reconstruction.Iterations,
		Subsets:    cfg.Reconstruction.Subsets,
		OutputDir:  cfg.Output.Directory,
		Logger:     logger,
	})

	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		logger.Error("terminal UI exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running spectrecon: %v\n", err)
		os.Exit(1)
	}
	logger.Info("spectrecon shutdown complete")
}

// applyFlags overrides config values with the flags named in explicit.
// Explicit iteration and subset counts are taken as typed so that invalid
// values reach request validation.
func applyFlags(cfg *config.Config, explicit map[string]bool, iterations, subsets int, outputDir string) {
	if explicit["iterations"] {
		cfg.Reconstruction.Iterations = iterations
	}
	if explicit["subsets"] {
		cfg.Reconstruction.Subsets = subsets
	}
	if explicit["output"] && outputDir != "" {
		cfg.Output.Directory = outputDir
	}
}

// banner prints the headless header
func banner(w io.Writer) {
	fmt.Fprintln(w, "================================")
	fmt.Fprintln(w, "SPECT OSEM RECONSTRUCTION")
	fmt.Fprintln(w, "Energy-window selection with scatter correction")
	fmt.Fprintln(w, "================================")
}
