// Command probe performs one-shot fetches against the AMap endpoints using
// the configured key, without writing anything to the database. Useful for
// verifying a key, a rectangle, or a keyword expression before deploying.
//
// Usage:
//
//	go run ./cmd/probe -kind poi -keywords "医院|诊所"
//	go run ./cmd/probe -kind traffic -rectangle "116.354,39.923;116.384,39.893"
//	go run ./cmd/probe -kind weather
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wan300/jiaotong/internal/adapter/amap"
	"github.com/wan300/jiaotong/internal/config"
	"github.com/wan300/jiaotong/internal/domain"
	"github.com/wan300/jiaotong/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	kind := flag.String("kind", "weather", "endpoint to probe: poi, traffic, or weather")
	keywords := flag.String("keywords", "医院", "keyword expression for -kind poi")
	rectangle := flag.String("rectangle", "116.354,39.923;116.384,39.893", "rectangle for -kind traffic")
	pages := flag.Int("pages", 1, "page limit for -kind poi")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.MaxPages = *pages

	logger := observability.NewLogger(cfg.LogLevel, "text")
	client := amap.NewClient(cfg, logger, observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch *kind {
	case "poi":
		return probePOI(ctx, client, *keywords, cfg.TargetCity)
	case "traffic":
		return probeTraffic(ctx, client, *rectangle)
	case "weather":
		return probeWeather(ctx, client, cfg.TargetAdcode)
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}
}

func probePOI(ctx context.Context, client *amap.Client, keywords, city string) error {
	total := 0
	err := client.EachPOIPage(ctx, keywords, city, func(page int, pois []domain.RawPOI) error {
		total += len(pois)
		for _, p := range pois {
			fmt.Printf("  [page %d] %s  %s  (%s)\n", page, p.ID, p.Name, p.Location)
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d pois for %q in %s\n", total, keywords, city)
	return nil
}

func probeTraffic(ctx context.Context, client *amap.Client, rectangle string) error {
	info, err := client.TrafficStatus(ctx, rectangle)
	if errors.Is(err, domain.ErrProviderStatus) {
		fmt.Println("provider reported no data for this rectangle")
		return nil
	}
	if err != nil {
		return err
	}
	if info == nil || len(info.Roads) == 0 {
		fmt.Println("no road data in response")
		return nil
	}
	fmt.Printf("description: %s\nroads: %d\n", info.Description, len(info.Roads))
	return printJSON(info)
}

func probeWeather(ctx context.Context, client *amap.Client, adcode string) error {
	lives, err := client.LiveWeather(ctx, adcode)
	if err != nil {
		return err
	}
	if len(lives) == 0 {
		fmt.Printf("no live weather for adcode %s\n", adcode)
		return nil
	}
	return printJSON(lives[0])
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
