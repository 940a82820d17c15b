// Command export writes one device's readings to a CSV or JSON file through
// the same path as the HTTP download.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/relvacode/iso8601"

	"BuoyWatch.api/internal/config"
	"BuoyWatch.api/internal/export"
	"BuoyWatch.api/internal/models"
	"BuoyWatch.api/internal/repository"
	"BuoyWatch.api/internal/service"
)

func main() {
	device := flag.String("device", "", "device id (default: first of DEVICE_IDS)")
	window := flag.String("window", models.DefaultWindow.Name, "window: 1h, 6h, 24h, 7d or 30d")
	from := flag.String("from", "", "ISO 8601 start of a custom range (overrides -window)")
	to := flag.String("to", "", "ISO 8601 end of a custom range (default now)")
	format := flag.String("format", "csv", "csv or json")
	raw := flag.Bool("raw", false, "export raw readings instead of the resampled series")
	out := flag.String("out", "", "output path (default: download file name in the current directory)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	req, err := buildRequest(cfg, *device, *window, *from, *to, *format, *raw)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path, n, err := run(ctx, cfg, req, *out)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %d bytes to %s\n", n, path)
}

func buildRequest(cfg config.Config, device, window, from, to, format string, raw bool) (models.SeriesRequest, error) {
	req := models.SeriesRequest{DeviceID: device, Raw: raw}
	if req.DeviceID == "" {
		req.DeviceID = cfg.DeviceIDs[0]
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return req, err
	}
	req.Format = f

	if from == "" {
		if to != "" {
			return req, fmt.Errorf("-to needs -from")
		}
		req.Window, err = models.ParseWindow(window)
		return req, err
	}
	if req.From, err = parseTime(from); err != nil {
		return req, err
	}
	if to != "" {
		if req.To, err = parseTime(to); err != nil {
			return req, err
		}
	}
	return req, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := iso8601.ParseString(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func run(ctx context.Context, cfg config.Config, req models.SeriesRequest, out string) (string, int, error) {
	backend, err := repository.OpenBackend(cfg)
	if err != nil {
		return "", 0, err
	}
	defer backend.Close()

	svc := service.NewDataService(repository.NewClient(backend, cfg.StoreTimeout),
		service.WithThresholds(cfg.Thresholds),
		service.WithCutoff(cfg.DataCutoff),
	)
	body, fileName, _, err := svc.Export(ctx, req)
	if err != nil {
		return "", 0, err
	}
	if out == "" {
		out = fileName
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return "", 0, err
	}
	return out, len(body), nil
}
