package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/annel0/oreforged/internal/config"
	"github.com/annel0/oreforged/internal/protocol"
	"github.com/annel0/oreforged/internal/world"
	"github.com/annel0/oreforged/internal/world/block"
)

var (
	seed     = flag.Uint("seed", uint(world.DefaultSeed), "world seed")
	size     = flag.Int("size", world.DefaultChunkSize, "chunk size (blocks)")
	height   = flag.Int("height", world.DefaultChunkHeight, "chunk height (blocks)")
	oreMult  = flag.Float64("ore", 1.0, "ore multiplier")
	treeMult = flag.Float64("tree", 1.0, "tree multiplier")
	island   = flag.Float64("island", 1.0, "island factor")
	radius   = flag.Int("radius", 0, "load radius around chunk (0,0)")
	padding  = flag.Int("padding", 0, "extra chunks on the negative side")
	command  = flag.String("cmd", "stats", "command: stats|dump")
	encoding = flag.String("encoding", "json", "dump encoding: json|zstd")
	outPath  = flag.String("out", "", "output file for dump (default stdout)")
)

func main() {
	flag.Parse()

	cfg := world.WorldConfig{
		Size:         *size,
		Height:       *height,
		OreMult:      *oreMult,
		TreeMult:     *treeMult,
		IslandFactor: *island,
	}
	if err := config.ValidateWorld(cfg); err != nil {
		log.Fatalf("invalid world config: %v", err)
	}

	w := world.NewWorldWithConfig(uint32(*seed), cfg)
	w.SetNegativePadding(*padding)
	w.LoadChunksAroundPosition(0, 0, *radius)

	switch *command {
	case "stats":
		printStats(w)
	case "dump":
		if err := dump(w); err != nil {
			log.Fatalf("dump: %v", err)
		}
	default:
		log.Fatalf("unknown cmd %s", *command)
	}
}

func printStats(w *world.World) {
	stats := w.Stats()
	fmt.Printf("seed=%d chunks=%d\n", w.Seed(), w.ChunkCount())
	fmt.Printf("trees: natural=%d guaranteed=%d target=%d unfilled=%d\n",
		stats.Trees, stats.GuaranteedTrees, stats.TreeTarget, stats.UnfilledTrees)
	fmt.Printf("loose stones=%d sand columns=%d\n", stats.LooseStones, stats.SandColumns)

	ids := make([]block.ID, 0, len(stats.Ores))
	for id := range stats.Ores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Printf("  %-8s placed=%d guaranteed=%d unfilled=%d\n",
			id.String(), stats.Ores[id], stats.GuaranteedOres[id], stats.UnfilledOres[id])
	}
}

func dump(w *world.World) error {
	enc, err := protocol.ParseEncoding(*encoding)
	if err != nil {
		return err
	}

	loaded := w.GetLoadedChunks()
	chunks := make([]protocol.SerializedChunk, 0, len(loaded))
	for _, c := range loaded {
		chunks = append(chunks, c.Serialize())
	}

	s, err := protocol.NewChunkSerializer()
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := s.EncodeChunks(chunks, enc)
	if err != nil {
		return err
	}

	if *outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %d chunks (%d bytes) to %s", len(chunks), len(data), *outPath)
	return nil
}
