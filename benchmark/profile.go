package benchmark

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/fogfactory/pipe/v2"
	"github.com/samber/lo"
)

// Profile generates a profile file. It will be outputted as pipe_{date}_in{childRatio}_l{limit}_w{workers}.prof.
//
// - childRatio Number of fragments generated at each split.
// - depth Number of split stages.
// - limit Pending limit of each stage.
// - workers Pool size running the leaf work.
//
// use pprof to read the file (go install github.com/google/pprof@latest).
func Profile(childRatio, depth, limit, workers int) {
	// Profile file
	f, err := os.Create(fmt.Sprintf("pipe_%s_in%d_l%d_w%d.prof",
		strings.ReplaceAll(time.Now().Truncate(time.Second).Format(time.DateTime), " ", "-"),
		childRatio, limit, workers))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Init pipeline
	loop := pipe.NewLoop()
	pool, err := pipe.NewWorkers(loop, workers)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer pool.Release()

	dumbProc := func(i int) (int, error) { time.Sleep(time.Millisecond); return i, nil }
	dumbSplit := pipe.SplitSync(func(parent int) ([]int, error) {
		return lo.Times(childRatio, func(int) int { return parent }), nil
	})

	source := pipe.NewSmart[int](loop, "source")
	var tail pipe.Producer[int] = source
	for i := 0; i < depth; i++ {
		split, _ := pipe.NewSplit(loop, fmt.Sprintf("split-%d", i), dumbSplit, pipe.WithLimit(limit))
		tail = pipe.Pipe(tail, split)
	}
	leaf := pipe.Pipe(tail, pipe.NewSmart[int](loop, "leaf", pipe.WithLimit(limit)).Use(pipe.Offload(pool, dumbProc)))

	// linear processing equivalent
	totalCall := int(math.Pow(float64(childRatio), float64(depth)))
	fmt.Println("totalCalls: ", totalCall, ", minimal seq duration:", time.Duration(totalCall)*time.Millisecond)

	// Start profiling
	func() {
		_ = pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		leaf.OnClose(cancel)

		// Run pipe
		start := time.Now()
		source.Accept(1)
		source.End()
		_ = loop.Run(ctx)
		fmt.Printf("(par: %s, %d leaves)\n", time.Since(start), leaf.DownstreamCount())
	}()

	val := 0

	start := time.Now()
	for i := 0; i < totalCall; i++ {
		val, _ = dumbProc(val)
	}
	fmt.Printf("(seq: %s)\n", time.Since(start))
	fmt.Printf("profile:%s\n", f.Name())

	// Call pprof on a file
	// pprof -http=:8080 $file
	// On all files
	// source <(ls | grep .prof | nl | awk '{print "pprof -http=:"$1 + 8080, $2,$3,"&"}')
}
