package pathfinder

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/mirror"
	"github.com/banshee-data/noisemap/internal/noise/path"
)

// Visitor receives the paths found by Run.
type Visitor interface {
	// ForReceiver is called by the worker owning r before any of its paths.
	ForReceiver(r Receiver) ReceiverVisitor
}

// ReceiverVisitor collects the paths of one receiver. It is only used by
// the goroutine that obtained it.
type ReceiverVisitor interface {
	// AddPaths takes the paths from one source point and returns the power
	// it contributed at the receiver, summed over bands.
	AddPaths(src SourcePoint, paths []*path.PropagationPath) float64
	// Finish is called once the receiver is complete.
	Finish()
}

// Run computes the paths of every receiver on ThreadCount workers (the
// number of CPUs when <= 0). It returns after Stop, cancellation of ctx or
// the first worker error, once the receivers in progress are done; results
// already handed to v remain valid.
func (d *Data) Run(ctx context.Context, v Visitor) error {
	if d.Scene == nil {
		return ErrNoScene
	}
	runID := uuid.New().String()
	threads := d.ThreadCount
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	d.prepare()
	start := time.Now()
	noise.Opsf("run %s: %d sources, %d receivers, %d workers", runID, len(d.Sources), len(d.Receivers), threads)

	var done atomic.Int64
	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range d.Receivers {
			if d.Stopped() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			for i := range jobs {
				if err := d.computeReceiver(d.Receivers[i], v); err != nil {
					return err
				}
				done.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	noise.Opsf("run %s: %d/%d receivers in %s", runID, done.Load(), len(d.Receivers), time.Since(start).Round(time.Millisecond))
	return err
}

// computeReceiver evaluates every source point within reach of rcv, nearest
// first. With a positive MaximumError the remaining points are skipped once
// their free-field bound cannot raise the received power by that much; the
// skipped energy is assumed negligible.
func (d *Data) computeReceiver(rcv Receiver, v Visitor) error {
	sink := v.ForReceiver(rcv)
	defer sink.Finish()

	if id, inside := d.Scene.IsInsideBuilding(rcv.Pos); inside {
		noise.Diagf("receiver %d is inside building %d", rcv.ID, id)
		return nil
	}
	var mirrors *mirror.Index
	if d.ReflexionOrder > 0 {
		m, err := d.mirrorIndex(rcv)
		if err != nil {
			return fmt.Errorf("receiver %d: %w", rcv.ID, err)
		}
		mirrors = m
	}

	pts := d.sourcePoints(rcv.Pos)
	remaining := make([]float64, len(pts)+1)
	if d.MaximumError > 0 {
		bands := len(noise.DefaultFrequencies)
		for i := len(pts) - 1; i >= 0; i-- {
			remaining[i] = remaining[i+1] + freeFieldBound(pts[i], rcv.Pos, bands)
		}
	}

	var received float64
	for i, sp := range pts {
		if d.MaximumError > 0 && received > 0 &&
			10*math.Log10((received+remaining[i])/received) < d.MaximumError {
			noise.Diagf("receiver %d: %d source points skipped within %.2f dB", rcv.ID, len(pts)-i, d.MaximumError)
			break
		}
		paths := d.computePaths(sp, rcv, mirrors)
		if len(paths) > 0 {
			received += sink.AddPaths(sp, paths)
		}
	}
	return nil
}
