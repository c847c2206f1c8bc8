package pathstore

import (
	"sync"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/path"
	"github.com/banshee-data/noisemap/internal/noise/pathfinder"
)

// Recorder is a pathfinder.Visitor that saves every path of a run and
// forwards it to an optional next visitor. Each receiver is written in one
// transaction when it finishes.
type Recorder struct {
	store *Store
	runID string
	next  pathfinder.Visitor

	mu  sync.Mutex
	err error
}

// Recorder returns a visitor saving paths under runID.
func (s *Store) Recorder(runID string, next pathfinder.Visitor) *Recorder {
	return &Recorder{store: s, runID: runID, next: next}
}

// Err returns the first write error of the run, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func (r *Recorder) ForReceiver(rcv pathfinder.Receiver) pathfinder.ReceiverVisitor {
	rr := &receiverRecorder{parent: r, receiverID: rcv.ID}
	if r.next != nil {
		rr.next = r.next.ForReceiver(rcv)
	}
	return rr
}

type receiverRecorder struct {
	parent     *Recorder
	receiverID int
	next       pathfinder.ReceiverVisitor
	rows       []Row
}

func (rr *receiverRecorder) AddPaths(src pathfinder.SourcePoint, paths []*path.PropagationPath) float64 {
	for _, p := range paths {
		rr.rows = append(rr.rows, Row{ReceiverID: rr.receiverID, SourceID: src.SourceID, Path: p})
	}
	if rr.next == nil {
		return 0
	}
	return rr.next.AddPaths(src, paths)
}

func (rr *receiverRecorder) Finish() {
	if rr.next != nil {
		rr.next.Finish()
	}
	if err := rr.parent.store.SavePaths(rr.parent.runID, rr.receiverID, rr.rows); err != nil {
		noise.Opsf("pathstore: receiver %d: %v", rr.receiverID, err)
		rr.parent.setErr(err)
	}
}
