// Command feedcheck fetches (or reads) a DATEX II feed, decodes it, and
// prints a classification summary, optionally filtered around a reference
// point. Useful for checking a national access point URL before adding it
// as a zone.
//
// Usage:
//
//	go run ./cmd/feedcheck -url https://nap.example/datex/incidents.xml \
//	  -kind incident -lat 40.4168 -lon -3.7038 -radius 50
//
//	go run ./cmd/feedcheck -file sample.xml -kind charging-point
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/roadwatch/datex-zone-monitor/internal/datex"
	"github.com/roadwatch/datex-zone-monitor/internal/domain"
	"github.com/roadwatch/datex-zone-monitor/internal/fetch"
	"github.com/roadwatch/datex-zone-monitor/internal/geo"
	"github.com/roadwatch/datex-zone-monitor/internal/monitor"
)

func main() {
	url := flag.String("url", "", "feed URL to fetch")
	file := flag.String("file", "", "local XML file to read instead of fetching")
	kindFlag := flag.String("kind", "incident", "feed kind: incident or charging-point")
	lat := flag.Float64("lat", 0, "reference latitude")
	lon := flag.Float64("lon", 0, "reference longitude")
	radius := flag.Float64("radius", 0, "radius in km (0 disables filtering)")
	timeout := flag.Duration("timeout", 15*time.Second, "fetch timeout")
	flag.Parse()

	if (*url == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -url or -file is required")
		flag.Usage()
		os.Exit(1)
	}

	kind := domain.Kind(*kindFlag)
	if kind != domain.KindIncident && kind != domain.KindCharging {
		fmt.Fprintf(os.Stderr, "unknown kind %q\n", *kindFlag)
		os.Exit(1)
	}

	if code := run(*url, *file, kind, *lat, *lon, *radius, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(url, file string, kind domain.Kind, lat, lon, radius float64, timeout time.Duration) int {
	payload, err := loadPayload(url, file, timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	fmt.Printf("payload: %d bytes\n", len(payload))

	res, err := datex.Decode(kind, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode: %v\n", err)
		return 1
	}
	fmt.Printf("decoded: %d records, %d skipped\n", len(res.Records), res.Skipped)

	records := res.Records
	if radius > 0 {
		ref := domain.ReferencePoint{Geo: domain.Geo{Lat: lat, Lon: lon}, Source: domain.RefStatic}
		filtered := geo.Filter(ref, radius, records)
		fmt.Printf("within %.1f km of %.4f,%.4f: %d records (%d without coordinates)\n",
			radius, lat, lon, len(filtered.Records), filtered.Unfilterable)
		records = filtered.Records
	}

	for i := range records {
		records[i] = domain.Classify(records[i])
	}

	printSummary(kind, records)
	return 0
}

func loadPayload(url, file string, timeout time.Duration) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}
	client := fetch.NewClient(timeout, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Fetch(ctx, url)
}

func printSummary(kind domain.Kind, records []domain.Record) {
	stats := monitor.Aggregate(kind, records)

	fmt.Println()
	fmt.Printf("%-14s %d\n", "total:", stats.Total)
	if stats.Nearest != nil {
		fmt.Printf("%-14s %s (%.1f km) %s\n", "nearest:", stats.Nearest.ID, stats.Nearest.DistanceKM, stats.Nearest.Description)
	}
	if stats.MostSevere != "" {
		fmt.Printf("%-14s %s\n", "most severe:", stats.MostSevere)
	}

	cats := make([]string, 0, len(stats.ByCategory))
	for cat := range stats.ByCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	fmt.Println("\nby category:")
	for _, cat := range cats {
		fmt.Printf("  %-14s %d\n", cat, stats.ByCategory[cat])
	}

	if len(records) == 0 {
		return
	}
	fmt.Println("\nrecords:")
	sort.Slice(records, func(i, j int) bool { return records[i].DistanceKM < records[j].DistanceKM })
	for _, rec := range records {
		line := fmt.Sprintf("  %-28s %-14s", rec.ID, rec.Category)
		if rec.Geo != nil {
			line += fmt.Sprintf(" %7.1f km", rec.DistanceKM)
		}
		if rec.Description != "" {
			line += "  " + rec.Description
		}
		fmt.Println(line)
	}
}
