// Command genmock generates a deterministic photo-report fixture inside the
// Nairobi map bounds. Reports are scattered around real neighbourhoods so the
// fixture exercises clustering at city zooms and spiderfying at street zooms.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/reports_nairobi.json -count 120
//	go run ./cmd/genmock -out data/mock/reports_nairobi.json -brokers localhost:9092 -topic report-list-snapshots
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	kafkaadapter "github.com/Copubah/dirty-nairobi/internal/adapter/kafka"
	"github.com/Copubah/dirty-nairobi/internal/domain"
)

var baseDate = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

// fixtureNamespace seeds report ids so repeated runs produce the same UUIDs.
var fixtureNamespace = uuid.MustParse("6f1e4a8c-2b7d-4c1e-9a35-0d8e2f61b7a4")

type hotspot struct {
	name   string
	lat    float64
	lng    float64
	spread float64 // degrees
	weight int
}

var hotspots = []hotspot{
	{name: "CBD", lat: -1.2864, lng: 36.8172, spread: 0.006, weight: 6},
	{name: "Kibera", lat: -1.3133, lng: 36.7876, spread: 0.010, weight: 5},
	{name: "Mathare", lat: -1.2597, lng: 36.8580, spread: 0.008, weight: 4},
	{name: "Eastleigh", lat: -1.2741, lng: 36.8511, spread: 0.007, weight: 3},
	{name: "Westlands", lat: -1.2676, lng: 36.8108, spread: 0.009, weight: 2},
	{name: "Dandora", lat: -1.2486, lng: 36.8989, spread: 0.012, weight: 3},
	{name: "Gikomba", lat: -1.2833, lng: 36.8364, spread: 0.003, weight: 2},
}

var problems = []string{
	"Overflowing skip",
	"Illegal dumping",
	"Blocked drain",
	"Burning rubbish",
	"Plastic waste along the river",
	"Uncollected garbage",
	"Construction debris on the road",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the report list JSON fixture")
	count := flag.Int("count", 120, "number of reports to generate")
	seed := flag.Uint64("seed", 254, "random seed")
	brokers := flag.String("brokers", "", "optional comma-separated Kafka brokers to publish the fixture to")
	topic := flag.String("topic", "report-list-snapshots", "Kafka topic for the published snapshot")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *count < 0 {
		return fmt.Errorf("-count must not be negative")
	}

	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(nil)

	reports := generate(*count, rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))
	log.Printf("generated %d reports", len(reports))

	if err := writeJSON(*out, reports); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	if *brokers != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		revision := "genmock-" + strconv.FormatUint(*seed, 10)
		if err := kafkaadapter.PublishSnapshot(ctx, strings.Split(*brokers, ","), *topic, revision, reports); err != nil {
			return fmt.Errorf("publishing snapshot: %w", err)
		}
		log.Printf("published snapshot %s to %s", revision, *topic)
	}

	printStats(reports)
	return nil
}

func generate(n int, rng *rand.Rand) []domain.Report {
	total := 0
	for _, h := range hotspots {
		total += h.weight
	}

	reports := make([]domain.Report, 0, n)
	for i := range n {
		h := pick(rng, total)
		lat, lng := scatter(rng, h)
		created := domain.Now().Add(time.Duration(i) * 97 * time.Minute)
		id := uuid.NewSHA1(fixtureNamespace, []byte(strconv.Itoa(i))).String()

		reports = append(reports, domain.Report{
			ID:          id,
			Description: fmt.Sprintf("%s near %s", problems[rng.IntN(len(problems))], h.name),
			Latitude:    round6(lat),
			Longitude:   round6(lng),
			ImageURL:    fmt.Sprintf("https://dirty-nairobi-photos.s3.amazonaws.com/uploads/%s.jpg", id),
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}
	// Newest first, as the photo API serves them.
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	return reports
}

func pick(rng *rand.Rand, total int) hotspot {
	n := rng.IntN(total)
	for _, h := range hotspots {
		if n < h.weight {
			return h
		}
		n -= h.weight
	}
	return hotspots[len(hotspots)-1]
}

// scatter draws a normally distributed point around h, clamped to the map bounds.
func scatter(rng *rand.Rand, h hotspot) (float64, float64) {
	b := domain.NairobiBoundary
	lat := math.Max(b.South, math.Min(b.North, h.lat+rng.NormFloat64()*h.spread))
	lng := math.Max(b.West, math.Min(b.East, h.lng+rng.NormFloat64()*h.spread))
	return lat, lng
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(reports []domain.Report) {
	byArea := map[string]int{}
	for _, r := range reports {
		_, area, _ := strings.Cut(r.Description, " near ")
		byArea[area]++
	}
	names := make([]string, 0, len(byArea))
	for name := range byArea {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return byArea[names[i]] > byArea[names[j]] })

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(reports))
	for _, name := range names {
		fmt.Printf("  %-10s %d\n", name, byArea[name])
	}
}
