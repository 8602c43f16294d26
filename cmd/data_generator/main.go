// Command data_generator writes synthetic daily bars for a set of symbols,
// one <symbol>.csv per symbol, with alternating trend regimes.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	out := flag.String("out", "data", "Output directory")
	symbols := flag.String("symbols", "600000,600036,000001,000858", "Comma separated symbols")
	bars := flag.Int("bars", 1000, "Bars per symbol")
	seed := flag.Int64("seed", 42, "Random seed")
	startDate := flag.String("start", "2020-01-02", "First bar date")
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for _, sym := range strings.Split(*symbols, ",") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		path := filepath.Join(*out, sym+".csv")
		f, err := os.Create(path)
		if err != nil {
			log.Fatalf("Failed to create file: %v", err)
		}
		price := 5 + rng.Float64()*45
		if err := writeDaily(f, rng, start, *bars, price); err != nil {
			f.Close()
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("Failed to close %s: %v", path, err)
		}
		fmt.Printf("Generated %d bars for %s\n", *bars, path)
	}
}
