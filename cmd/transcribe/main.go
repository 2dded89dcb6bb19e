package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"transcript-search/pkg/transcribe"
)

func main() {
	var (
		model          = flag.String("model", "turbo", "Model alias (large, turbo, parakeet) or a full repo path")
		outputDir      = flag.String("output-dir", "captions", "Directory receiving the <stem>.srt / <stem>.txt pairs")
		overwrite      = flag.Bool("overwrite", false, "Re-transcribe inputs whose caption pair already exists")
		wordTimestamps = flag.Bool("word-timestamps", false, "Ask the transcription tool for word-level timing")
	)
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		log.Fatal("No input files. Usage: transcribe [flags] <audio files...>")
	}

	runner := transcribe.New(transcribe.Config{
		OutputDir:      *outputDir,
		Model:          *model,
		Overwrite:      *overwrite,
		WordTimestamps: *wordTimestamps,
	})

	start := time.Now()
	results, err := runner.Run(context.Background(), inputs)
	if err != nil {
		log.Fatalf("Transcription failed: %v", err)
	}

	failed := 0
	for _, r := range results {
		if r.Status == transcribe.StatusFailed {
			failed++
		}
	}

	log.Printf("Processed %d inputs (%d failed). Duration: %s", len(results), failed, time.Since(start))
	if failed > 0 {
		os.Exit(1)
	}
}
