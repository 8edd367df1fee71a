package routes

import "context"

type inflightOp struct {
	acquire bool
	id      string
	result  chan<- bool
}

// inflight marks sessions whose step submission is being processed. A single
// goroutine owns the set; it exits when ctx is done.
type inflight struct {
	ops  chan inflightOp
	done <-chan struct{}
}

func newInflight(ctx context.Context) *inflight {
	g := &inflight{ops: make(chan inflightOp), done: ctx.Done()}
	go func() {
		busy := make(map[string]bool)
		for {
			select {
			case <-ctx.Done():
				return
			case op := <-g.ops:
				if op.acquire {
					op.result <- !busy[op.id]
					busy[op.id] = true
				} else {
					delete(busy, op.id)
				}
			}
		}
	}()
	return g
}

// acquire reports whether id was free and is now held by the caller.
func (g *inflight) acquire(id string) bool {
	result := make(chan bool, 1)
	select {
	case g.ops <- inflightOp{acquire: true, id: id, result: result}:
		return <-result
	case <-g.done:
		return false
	}
}

func (g *inflight) release(id string) {
	select {
	case g.ops <- inflightOp{id: id}:
	case <-g.done:
	}
}
