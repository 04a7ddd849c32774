// Package dispatch schedules long-lived systems over a table of typed
// singleton resources, one tick at a time.
//
// A system declares the resources it reads and writes through the handles in
// its data struct. The dispatcher uses those declarations to place systems
// into conflict-free groups: members of a group run in parallel, groups run
// one after another, and no two systems that touch the same resource with at
// least one write are ever running at the same time.
//
// # Quick Start
//
//	type Score struct{ Points int }
//
//	type Scorer struct{}
//
//	type ScorerData struct {
//	    Frame dispatch.Read[dispatch.FrameSync]
//	    Score dispatch.Write[Score]
//	}
//
//	func (Scorer) Run(ctx context.Context, data ScorerData) error {
//	    for {
//	        if err := data.Frame.Get().Wait(ctx); err != nil {
//	            return err
//	        }
//	        data.Score.Get().Points++
//	    }
//	}
//
//	clock := dispatch.NewClock()
//	res := dispatch.NewResources()
//	res.Insert(dispatch.NewFrameSync(clock))
//	res.Insert(Score{})
//
//	d := dispatch.New()
//	defer d.Close()
//	if err := dispatch.Register[ScorerData](d, res, Scorer{}); err != nil {
//	    return err
//	}
//
//	runner := dispatch.NewRunner(d, res, clock, dispatch.WithTickRate(50*time.Millisecond))
//	runner.Start(ctx)
//
// # Handles
//
// Read[T] and Write[T] never hold the address of a resource. They resolve
// through the dispatcher's Reference, which only points at the store while a
// tick is running, so a handle kept across frame barriers always reaches the
// store of the current tick.
//
// # Errors
//
// Dereferencing a type that was never inserted fails with ErrResourceMissing,
// dereferencing outside a tick with ErrReferenceNotBound, and touching a type
// outside the declared sets with ErrUndeclaredAccess. Handle Get methods
// panic with these errors; the dispatcher recovers the panic and fails the
// system according to its FailurePolicy.
package dispatch

// Version is the dispatch version.
const Version = "1.0.0"
