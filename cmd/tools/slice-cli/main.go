package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/annel0/sensor-playback/internal/codec"
	"github.com/annel0/sensor-playback/internal/observability"
	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/registry"
	"github.com/annel0/sensor-playback/internal/slicer"
	"github.com/annel0/sensor-playback/internal/synth"
	"go.opentelemetry.io/otel/attribute"
)

func main() {
	var (
		command = flag.String("cmd", "info", "Command: info, crop, split, labels, channels, gen")
		in      = flag.String("in", "", "Input dump (.json or .json.zst)")
		out     = flag.String("out", "", "Output dump (.json or .json.zst)")
		start   = flag.Float64("start", -1, "crop: start time, seconds (<0 means first timestamp)")
		stop    = flag.Float64("stop", -1, "crop: stop time, seconds (<0 means last timestamp)")
		stream  = flag.String("stream", "", "split/labels: stream path, e.g. cam/dvs")
		field   = flag.String("field", recording.FieldPol, "split: integer column to split by")
		values  = flag.String("values", "", "split: keep only these values (comma-separated)")
		channel = flag.String("channel", "", "channels: channel whose dvs stream has a ch column")
		seed    = flag.Int64("seed", 42, "gen: synthetic recording seed")
		telem   = flag.Bool("telemetry", false, "Export OTLP traces")
	)
	flag.Parse()

	ctx := context.Background()
	if *telem {
		shutdown, err := observability.InitTelemetry(ctx, "slice-cli")
		if err != nil {
			log.Fatalf("❌ Failed to init telemetry: %v", err)
		}
		defer shutdown(ctx)
	}

	var err error
	switch *command {
	case "info":
		err = showInfo(mustRead(*in))
	case "crop":
		err = crop(ctx, mustRead(*in), *out, *start, *stop)
	case "split":
		err = split(mustRead(*in), *out, *stream, *field, *values)
	case "labels":
		err = labels(mustRead(*in), *out, *stream)
	case "channels":
		err = channels(mustRead(*in), *out, *channel)
	case "gen":
		opts := synth.DefaultOptions()
		opts.Seed = *seed
		err = write(*out, synth.New(opts).Recording())
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: info, crop, split, labels, channels, gen")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

func mustRead(path string) *recording.Recording {
	if path == "" {
		log.Fatalf("❌ -in is required")
	}
	rec, err := codec.ReadFile(path)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", path, err)
	}
	return rec
}

func write(path string, rec *recording.Recording) error {
	if path == "" {
		return fmt.Errorf("-out is required")
	}
	if err := codec.WriteFile(path, rec); err != nil {
		return err
	}
	fmt.Printf("💾 Written %s\n", path)
	return nil
}

// showInfo печатает дерево потоков записи
func showInfo(rec *recording.Recording) error {
	fmt.Printf("📼 Recording %q\n", rec.Info.Path)
	if rec.Info.StartTime != nil && rec.Info.StopTime != nil {
		fmt.Printf("   cropped: [%.6f, %.6f]\n", *rec.Info.StartTime, *rec.Info.StopTime)
	}
	first, okFirst := slicer.FirstTimestamp(rec.Data)
	last, okLast := slicer.LastTimestamp(rec.Data)
	if okFirst && okLast {
		fmt.Printf("   time: [%.6f, %.6f]\n", first, last)
	}

	for leaf := range registry.Walk(rec.Data) {
		s := leaf.Stream
		mark := "✅"
		if !registry.IsRecognized(leaf.DataType) {
			mark = "⚠️"
		}
		span := ""
		if s.Len() > 0 {
			span = fmt.Sprintf(" [%.6f, %.6f]", s.Ts[0], s.Ts[s.Len()-1])
		}
		fmt.Printf("%s %-24s %-8s n=%-8d offset=%.6f%s columns=%s\n",
			mark, leaf.Path(), leaf.DataType, s.Len(), s.TsOffset, span, strings.Join(s.ColumnNames(), ","))
	}
	return nil
}

func crop(ctx context.Context, rec *recording.Recording, out string, start, stop float64) error {
	_, span := observability.Tracer().Start(ctx, "slice-cli.crop")
	defer span.End()

	var opts []slicer.CropOption
	if start >= 0 {
		opts = append(opts, slicer.WithStart(start))
	}
	if stop >= 0 {
		opts = append(opts, slicer.WithStop(stop))
	}
	cropped, err := slicer.CropRecording(rec, opts...)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(
		attribute.Float64("crop.start", *cropped.Info.StartTime),
		attribute.Float64("crop.stop", *cropped.Info.StopTime),
	)
	fmt.Printf("✂️ Cropped to [%.6f, %.6f]\n", *cropped.Info.StartTime, *cropped.Info.StopTime)
	return write(out, cropped)
}

// findStream ищет поток по пути вида "cam/dvs"
func findStream(rec *recording.Recording, path string) (registry.Leaf, error) {
	for leaf := range registry.Walk(rec.Data) {
		full := leaf.DataType
		if p := leaf.Path(); p != "" {
			full = p + "/" + leaf.DataType
		}
		if full == path {
			return leaf, nil
		}
	}
	return registry.Leaf{}, fmt.Errorf("stream %q not found", path)
}

func split(rec *recording.Recording, out, path, field, rawValues string) error {
	leaf, err := findStream(rec, path)
	if err != nil {
		return err
	}
	vals, err := parseValues(rawValues)
	if err != nil {
		return err
	}
	parts, err := slicer.SplitByField(leaf.Stream, field, vals...)
	if err != nil {
		return err
	}

	data := recording.NewKeyed()
	for _, part := range parts {
		name := fmt.Sprintf("%s=%d", field, part.Value)
		fmt.Printf("🔀 %-12s n=%d\n", name, part.Stream.Len())
		data.Set(name, recording.Channel(map[string]*recording.Stream{leaf.DataType: part.Stream}))
	}
	return write(out, &recording.Recording{Info: rec.Info.Clone(), Data: data})
}

func labels(rec *recording.Recording, out, path string) error {
	leaf, err := findStream(rec, path)
	if err != nil {
		return err
	}
	parts, err := slicer.SplitByLabelPresence(leaf.Stream)
	if err != nil {
		return err
	}

	data := recording.NewKeyed()
	for _, p := range []struct {
		name string
		s    *recording.Stream
	}{{"labelled", parts.Labeled}, {"unlabelled", parts.Unlabeled}} {
		name, s := p.name, p.s
		if s == nil {
			fmt.Printf("🏷️ %-12s empty\n", name)
			continue
		}
		fmt.Printf("🏷️ %-12s n=%d\n", name, s.Len())
		data.Set(name, recording.Channel(map[string]*recording.Stream{leaf.DataType: s}))
	}
	return write(out, &recording.Recording{Info: rec.Info.Clone(), Data: data})
}

func channels(rec *recording.Recording, out, channel string) error {
	data, err := slicer.SplitByChannel(rec.Data, channel)
	if err != nil {
		return err
	}
	fmt.Printf("📡 Channels: %s\n", strings.Join(data.Keys(), ", "))
	return write(out, &recording.Recording{Info: rec.Info.Clone(), Data: data})
}

func parseValues(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}
