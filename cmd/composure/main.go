package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"

	"github.com/framewise/composure/internal/composition"
	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
	"github.com/framewise/composure/internal/overlay"
	"github.com/framewise/composure/internal/pipeline"
	"github.com/framewise/composure/internal/stream"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and --help before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("composure %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	// Configure logging to stderr (stdout is for JSON results)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	var (
		ruleName = flag.String("rule", "thirds", "composition rule: thirds, center, symmetry")
		best     = flag.Bool("best", false, "evaluate all rules and report the highest-scoring one")
		annotate = flag.String("annotate", "", "write an annotated copy of the image to this path")
		cascade  = flag.String("cascade", "", "path to a facefinder cascade file (enables face detection)")
		listen   = flag.String("listen", "", "serve results over websocket on this address (e.g. :8077)")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: composure [options] <image-or-frame-dir>")
		fmt.Fprintln(os.Stderr, "run 'composure --help' for details")
		os.Exit(2)
	}

	logLevel := os.Getenv("COMPOSURE_LOG_LEVEL")
	if logLevel == "debug" {
		log.Printf("composure v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	det, err := newDetector(*cascade)
	if err != nil {
		log.Fatalf("Detector setup failed: %v", err)
	}

	mgr := composition.NewManager(composition.DefaultTuning())
	if !*best {
		rule, err := composition.ParseRule(*ruleName)
		if err != nil {
			log.Fatalf("Invalid rule: %v", err)
		}
		mgr.SwitchTo(rule)
	}

	path := flag.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		log.Fatalf("Cannot read %s: %v", path, err)
	}

	if info.IsDir() {
		if *listen == "" {
			log.Fatalf("A frame directory requires -listen (e.g. -listen :8077)")
		}
		if err := runFeed(det, mgr, path, *listen, logLevel == "debug"); err != nil {
			log.Fatalf("Feed failed: %v", err)
		}
		return
	}

	if err := runSingle(det, mgr, *best, *annotate, path, logLevel == "debug"); err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
}

func printHelp() {
	fmt.Println("composure - photo composition evaluation")
	fmt.Println()
	fmt.Println("Usage: composure [options] <image-or-frame-dir>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -rule <name>       Composition rule: thirds, center, symmetry (default thirds)")
	fmt.Println("  -best              Evaluate all rules and report the highest-scoring one")
	fmt.Println("  -annotate <path>   Write an annotated copy of the image")
	fmt.Println("  -cascade <path>    Facefinder cascade file (enables face detection)")
	fmt.Println("  -listen <addr>     Serve results over websocket (e.g. :8077)")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  COMPOSURE_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println()
	fmt.Println("With a single image, the evaluation result is printed to stdout as JSON.")
	fmt.Println("With a directory, its images are cycled through the live evaluation")
	fmt.Println("pipeline as a simulated camera feed and results are streamed over")
	fmt.Println("websocket (requires -listen).")
}

// newDetector builds the subject detector, loading a face cascade when one
// was supplied. Without a cascade the detector works from saliency alone.
func newDetector(cascadePath string) (*detect.Detector, error) {
	cfg := detect.DefaultConfig()
	if cascadePath == "" {
		return detect.New(cfg), nil
	}
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade %s: %w", cascadePath, err)
	}
	return detect.NewWithCascade(cfg, data)
}

func runSingle(det *detect.Detector, mgr *composition.Manager, best bool, annotatePath, imagePath string, debug bool) error {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", imagePath, err)
	}

	start := time.Now()
	obs := det.Detect(img)
	frame := geometry.SizeOf(img)

	var result *composition.Result
	if best {
		result, err = mgr.BestSuggestion(obs, frame, img)
	} else {
		result, err = mgr.Evaluate(obs, frame, img)
	}
	if err != nil {
		return err
	}
	if debug {
		log.Printf("Evaluated %s in %v (subject: %s)", imagePath, time.Since(start), obs.Kind)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))

	if annotatePath != "" {
		if err := writeAnnotated(img, result, annotatePath); err != nil {
			return err
		}
		if debug {
			log.Printf("Annotated image written to %s", annotatePath)
		}
	}

	return nil
}

// writeAnnotated rasterizes the overlay elements onto a copy of the image.
func writeAnnotated(img image.Image, result *composition.Result, path string) error {
	elements := overlay.Generate(result)
	annotated := overlay.Render(img, elements)
	if err := imaging.Save(annotated, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// loadFrames reads every decodable image in a directory, in name order.
func loadFrames(dir string) ([]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir %s: %w", dir, err)
	}

	var frames []image.Image
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		default:
			continue
		}
		img, err := imaging.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Skipping %s: %v", entry.Name(), err)
			continue
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no decodable frames in %s", dir)
	}
	return frames, nil
}

// runFeed cycles a directory of frames through the evaluation pipeline as a
// simulated camera feed, broadcasting each published result over websocket
// until interrupted.
func runFeed(det *detect.Detector, mgr *composition.Manager, dir, addr string, debug bool) error {
	frames, err := loadFrames(dir)
	if err != nil {
		return err
	}
	log.Printf("Feeding %d frames from %s", len(frames), dir)

	hub := stream.NewHub()
	defer hub.Close()

	srv := &http.Server{Addr: addr, Handler: hub.Routes()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("Serving results on ws://%s/ws/results", addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe := pipeline.New(det, mgr, pipeline.DefaultConfig())
	pipe.Subscribe(func(eval pipeline.Evaluation) {
		hub.Broadcast(eval)
		if debug {
			log.Printf("Frame %d: %s %.2f (%v)", eval.Seq, eval.Result.Rule, eval.Result.Score, eval.Elapsed)
		}
	})
	if err := pipe.Start(ctx); err != nil {
		return err
	}
	defer pipe.Stop()

	// ~30 fps simulated camera
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		case err := <-errc:
			return err
		case <-ticker.C:
			pipe.Submit(frames[i%len(frames)])
		}
	}
}
