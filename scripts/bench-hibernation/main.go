// bench-hibernation measures heap memory before and after Hibernate() calls
// on a large map with churn, and the time spent compressing and booting.
//
// Usage:
//
//	go run ./scripts/bench-hibernation --entries 2000000 --churn 0.3 \
//	  --profile-dir docs/profiles/hibernation
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

type heapSnapshot struct {
	label     string
	heapInUse uint64
	heapSys   uint64
	heapIdle  uint64
}

func main() {
	entries := flag.Int("entries", 1_000_000, "Number of entries to insert")
	churn := flag.Float64("churn", 0.25, "Fraction of entries removed before hibernating")
	rounds := flag.Int("rounds", 3, "Hibernate/boot cycles")
	seed := flag.Int64("seed", 1, "Random seed")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles (optional)")

	flag.Parse()

	if *entries <= 0 {
		log.Fatal("--entries must be positive")
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
		})
		log.Printf("  [heap] %-32s inuse=%8s  sys=%8s  idle=%8s", label,
			humanize.Bytes(m.HeapInuse), humanize.Bytes(m.HeapSys), humanize.Bytes(m.HeapIdle))
	}

	writeHeapProfile := func(name string) {
		if *profileDir == "" {
			return
		}

		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("before_fill")

	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // benchmark workload.
	tree := rbtree.New[int, int]()

	for _, key := range rng.Perm(*entries) {
		tree.Insert(key, key)
	}

	removed := int(float64(*entries) * *churn)
	for _, key := range rng.Perm(*entries)[:removed] {
		tree.Remove(key)
	}

	log.Printf("map holds %s entries in %s slots", humanize.Comma(int64(tree.Len())),
		humanize.Comma(int64(tree.Allocator().Size())))

	alloc := tree.Allocator()

	for round := range *rounds {
		takeSnapshot(fmt.Sprintf("round_%d_before_hibernate", round))
		writeHeapProfile(fmt.Sprintf("heap_round_%d_before_hibernate.prof", round))

		start := time.Now()
		alloc.Hibernate()
		hibernateTime := time.Since(start)

		takeSnapshot(fmt.Sprintf("round_%d_after_hibernate", round))
		writeHeapProfile(fmt.Sprintf("heap_round_%d_after_hibernate.prof", round))

		compressed := alloc.HibernatedSize()

		start = time.Now()
		alloc.Boot()
		bootTime := time.Since(start)

		takeSnapshot(fmt.Sprintf("round_%d_after_boot", round))

		log.Printf("round %d: hibernate %s, boot %s, compressed columns %s", round,
			hibernateTime, bootTime, humanize.Bytes(safeconv.MustIntToUint64(compressed)))

		if err := tree.Check(); err != nil {
			log.Fatalf("map corrupted after round %d: %v", round, err)
		}
	}

	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-35s %10s %10s %10s\n", "Phase", "InUse(MB)", "Sys(MB)", "Idle(MB)")
	fmt.Println("-----------------------------------+----------+----------+----------")

	for _, s := range snapshots {
		fmt.Printf("%-35s %10.1f %10.1f %10.1f\n",
			s.label, float64(s.heapInUse)/1e6, float64(s.heapSys)/1e6, float64(s.heapIdle)/1e6)
	}

	fmt.Println()
	fmt.Println("=== Hibernation Memory Deltas ===")

	for i := 0; i+1 < len(snapshots); i++ {
		curr := snapshots[i]

		next := snapshots[i+1]
		if strings.HasSuffix(curr.label, "before_hibernate") && strings.HasSuffix(next.label, "after_hibernate") {
			delta := float64(curr.heapInUse) - float64(next.heapInUse)
			pct := (delta / float64(curr.heapInUse)) * 100
			fmt.Printf("  %s -> %s: %.1f MB freed (%.1f%%)\n",
				curr.label, next.label, delta/1e6, pct)
		}
	}
}
