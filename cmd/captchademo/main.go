// Command captchademo exercises an Engine end to end: it brings one up
// with a small pool, issues a handful of CAPTCHAs to disk, validates
// them, then shuts down cleanly. It exists to give the module a runnable
// smoke test independent of the unit tests.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"captchaforge"
)

func main() {
	outDir := flag.String("out", "./captchas", "directory to write sample CAPTCHA images into")
	fontDir := flag.String("fonts", "", "directory of .ttf font files (required)")
	poolSize := flag.Int("pool", 8, "pool size")
	count := flag.Int("count", 3, "how many CAPTCHAs to issue and validate")
	flag.Parse()

	if *fontDir == "" {
		log.Fatal("captchademo: -fonts is required (no font binaries ship with this module)")
	}
	fonts, err := discoverFonts(*fontDir)
	if err != nil {
		log.Fatalf("captchademo: %v", err)
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("captchademo: creating output dir: %v", err)
	}

	settings := captchaforge.Default()
	settings.Fonts = fonts
	settings.PoolSize = *poolSize

	engine, err := captchaforge.New(settings)
	if err != nil {
		log.Fatalf("captchademo: starting engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("captchademo: shutdown requested")
	}()

	// The Engine never hands the plaintext solution back to the caller
	// directly — a real host displays the image and reads the answer
	// from its user. This demo only has a wrong answer to try, which is
	// enough to exercise the validate path end to end.
	for i := 0; i < *count; i++ {
		path := filepath.Join(*outDir, fmt.Sprintf("sample-%d.png", i))
		blob, token, err := engine.Get(path)
		if err != nil {
			log.Printf("captchademo: get failed: %v", err)
			continue
		}
		log.Printf("captchademo: issued %s (%d bytes)", path, len(blob))

		ok, err := engine.Validate(token, "wrong-answer")
		if err != nil {
			log.Printf("captchademo: validate failed: %v", err)
			continue
		}
		log.Printf("captchademo: validate with a wrong answer = %v (expected false)", ok)

		time.Sleep(50 * time.Millisecond)
	}

	engine.PrintStats()

	if err := engine.Shutdown(); err != nil {
		log.Fatalf("captchademo: shutdown: %v", err)
	}
}

func discoverFonts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading font dir: %w", err)
	}
	var fonts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".ttf" {
			fonts = append(fonts, filepath.Join(dir, entry.Name()))
		}
	}
	if len(fonts) == 0 {
		return nil, fmt.Errorf("no .ttf files found in %s", dir)
	}
	return fonts, nil
}
