// Command target is a minimal stand-in for a real optimization target: it
// reads the factor levels the engine assembled as CLI flags and an
// environment variable, does a small amount of synthetic work whose cost
// depends on those levels, and emits the sentinel-delimited JSON response
// the Trial Driver expects.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

const resultSentinel = "v^v^v^RESULT^v^v^v"

func main() {
	workers := flag.Int("workers", 1, "simulated worker count")
	algorithm := flag.String("algorithm", "quick", "simulated algorithm variant")
	flag.Parse()

	pattern := os.Getenv("DATA_PATTERN")
	size := 200_000

	data := make([]int, size)
	switch pattern {
	case "sorted":
		for i := range data {
			data[i] = i
		}
	case "reverse":
		for i := range data {
			data[i] = size - i
		}
	default:
		for i := range data {
			data[i] = rand.Intn(size)
		}
	}

	start := time.Now()
	workUnit := size / *workers
	if *algorithm == "radix" {
		workUnit = workUnit * 2 / 3
	}
	for i := 0; i < workUnit; i++ {
		_ = data[i%len(data)] * 2
	}
	elapsed := time.Since(start)

	fmt.Println(resultSentinel)
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(map[string]map[string]float64{
		"result": {
			"duration_us": float64(elapsed.Microseconds()),
		},
	})
}
