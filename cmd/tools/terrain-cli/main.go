package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/config"
	"github.com/annel0/biome-terrain/internal/eventbus"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		command    = flag.String("cmd", "map", "Command: map, tail, stats")
		configPath = flag.String("config", "", "Config file (YAML or TOML)")
		natsURL    = flag.String("nats", "", "NATS URL for tail (default from config)")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		server     = flag.String("server", "http://localhost:8088", "REST API address for stats")
		step       = flag.Float64("step", 0, "Map sampling step in world units (default: one chunk / 4)")
		limit      = flag.Int("limit", 0, "Stop tail after N events (0 = follow)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	switch *command {
	case "map":
		if err := printMap(os.Stdout, cfg, *step); err != nil {
			log.Fatalf("❌ Map failed: %v", err)
		}

	case "tail":
		url := *natsURL
		if url == "" {
			url = cfg.NATS.GetURL()
		}
		if err := tailEvents(url, cfg.NATS.Stream, parseStringList(*eventTypes), *limit); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(*server); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: map, tail, stats")
		os.Exit(1)
	}
}

// printMap выводит карту суббиомов: одна буква на точку выборки, '~' — вода
func printMap(w io.Writer, cfg *config.Config, step float64) error {
	kind, err := biome.ParseKind(cfg.World.Biome)
	if err != nil {
		return err
	}
	b, err := biome.New(kind)
	if err != nil {
		return err
	}
	gen, err := biome.NewGenerator(b, cfg.GeneratorConfig())
	if err != nil {
		return err
	}

	dims := cfg.Dimensions()
	if step <= 0 {
		step = dims.ChunkWidth() / 4
	}

	legend := map[string]byte{}
	fmt.Fprintf(w, "🗺️  %s, seed %d, %.0fx%.0f\n", b.Name(), cfg.World.Seed, dims.Width(), dims.Depth())
	for z := step / 2; z < dims.Depth(); z += step {
		var line strings.Builder
		for x := step / 2; x < dims.Width(); x += step {
			if gen.IsUnderwater(x, z) {
				line.WriteByte('~')
				continue
			}
			sb := gen.SubBiomeAt(x, z)
			ch, ok := legend[sb.Name]
			if !ok {
				ch = sb.Name[0]
				legend[sb.Name] = ch
			}
			line.WriteByte(ch)
		}
		fmt.Fprintln(w, line.String())
	}
	fmt.Fprintln(w)
	for name, ch := range legend {
		fmt.Fprintf(w, "  %c  %s\n", ch, name)
	}
	return nil
}

// tailEvents выводит события шины в реальном времени
func tailEvents(url, stream string, types []string, limit int) error {
	bus, err := eventbus.NewJetStreamBus(url, stream, 24*time.Hour)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🎬 Tailing events from %s (types: %v)\n", url, types)
	events := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n✅ Received %d events\n", count)
			return nil
		case ev := <-events:
			count++
			printEvent(ev)
			if limit > 0 && count >= limit {
				return nil
			}
		}
	}
}

func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s from %s (id=%s)\n", ev.Timestamp.UTC().Format(timeFormat), ev.EventType, ev.Source, ev.ID)
	if len(ev.Payload) > 0 {
		fmt.Printf("   %s\n", string(ev.Payload))
	}
}

// showStats запрашивает /api/stats и печатает ответ
func showStats(server string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(server, "/") + "/api/stats")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	out, err := json.MarshalIndent(body["data"], "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("📊 Server stats:")
	fmt.Println(string(out))
	return nil
}

// parseStringList парсит список строк через запятую
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
