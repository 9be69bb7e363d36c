package nodez

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// Observer is a function invoked synchronously when an observed node is
// written. The node reference is a non-owning view: it is valid for the
// duration of the invocation and may be re-queried for current value, type,
// and access state.
//
// Observers run on the goroutine that performed the write, so an observer
// must not block indefinitely or it stalls the writer. An observer that
// writes to the same or another node triggers nested dispatch; the nested
// dispatch completes before the outer dispatch continues to its next
// observer (depth-first ordering).
type Observer func(*Node)

// Handle is an opaque registration token. It is the sole token permitted
// for deregistration, and only with the registry that issued it. Handles
// are single-use: a deregistered handle is stale.
type Handle struct {
	id uint64
	r  *Registry
}

// Dispatch carries a node through the observer pipeline built at
// registration time. Middleware from Option values processes it before the
// observer runs.
type Dispatch struct {
	// Node is the node that was written.
	Node *Node
}

const observerID = pipz.Name("observer")

type registration struct {
	id       uint64
	node     *Node
	pipeline pipz.Chainable[*Dispatch]
}

// Registry associates nodes with observer functions. Each Map owns exactly
// one Registry; handles issued by one registry are invalid on any other.
//
// Dispatch is synchronous and in registration order. The observer list is
// snapshotted before iterating, so observers may register, deregister, and
// write nodes from within an invocation without corrupting the registry.
type Registry struct {
	owner   *Map
	clock   clockz.Clock
	metrics MetricsProvider

	mu   sync.Mutex
	next uint64
	regs map[*Node][]*registration
	byID map[uint64]*registration
}

func newRegistry(owner *Map) *Registry {
	return &Registry{
		owner: owner,
		clock: clockz.RealClock,
		regs:  make(map[*Node][]*registration),
		byID:  make(map[uint64]*registration),
	}
}

// Register associates an observer with a node and returns the handle needed
// to deregister it. Registration fails with ErrNotWritable if the node is
// not currently writable: a callback on a non-writable node can never fire
// from local writes. Multiple registrations on the same node are allowed
// and independent.
//
// Every handle obtained from Register must be passed to Deregister before
// the owning map is closed; handles still outstanding at Close are
// force-released.
func (r *Registry) Register(n *Node, fn Observer, opts ...Option) (Handle, error) {
	if n == nil {
		return Handle{}, ErrNotFound
	}
	if n.owner != r.owner {
		return Handle{}, fmt.Errorf("%q: %w", n.name, ErrNotFound)
	}
	if !r.owner.IsWritable(n) {
		return Handle{}, fmt.Errorf("%q: %w", n.name, ErrNotWritable)
	}
	if fn == nil {
		return Handle{}, fmt.Errorf("%q: nil observer", n.name)
	}

	terminal := pipz.Effect(observerID, func(_ context.Context, d *Dispatch) error {
		fn(d.Node)
		return nil
	})
	pipeline := buildPipeline(terminal, opts)

	r.mu.Lock()
	r.next++
	reg := &registration{id: r.next, node: n, pipeline: pipeline}
	r.regs[n] = append(r.regs[n], reg)
	r.byID[reg.id] = reg
	r.mu.Unlock()

	capitan.Emit(context.Background(), ObserverRegistered,
		KeyMap.Field(r.owner.name),
		KeyNode.Field(n.name),
		KeyHandle.Field(int(reg.id)),
	)
	if r.metrics != nil {
		r.metrics.OnRegister(n.name)
	}
	return Handle{id: reg.id, r: r}, nil
}

// Deregister removes exactly the registration the handle names. Passing an
// already-deregistered, zero, or foreign handle fails with ErrInvalidHandle.
// Other registrations on the same node are unaffected.
func (r *Registry) Deregister(h Handle) error {
	if h.r != r || h.id == 0 {
		return ErrInvalidHandle
	}
	r.mu.Lock()
	reg, ok := r.byID[h.id]
	if !ok {
		r.mu.Unlock()
		return ErrInvalidHandle
	}
	delete(r.byID, h.id)
	r.removeLocked(reg)
	r.mu.Unlock()

	capitan.Emit(context.Background(), ObserverDeregistered,
		KeyMap.Field(r.owner.name),
		KeyNode.Field(reg.node.name),
		KeyHandle.Field(int(h.id)),
	)
	if r.metrics != nil {
		r.metrics.OnDeregister(reg.node.name)
	}
	return nil
}

// Observers returns the number of observers currently registered to a node.
func (r *Registry) Observers(n *Node) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs[n])
}

// removeLocked removes a registration from its node's ordered list.
// Caller holds the registry mutex.
func (r *Registry) removeLocked(reg *registration) {
	list := r.regs[reg.node]
	for i, candidate := range list {
		if candidate == reg {
			r.regs[reg.node] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// dispatch invokes every observer registered to the node, in registration
// order, on the calling goroutine. The list is copied under the mutex
// before iterating so re-entrant registration and deregistration are safe;
// nested writes dispatch depth-first.
func (r *Registry) dispatch(ctx context.Context, n *Node) {
	r.mu.Lock()
	list := r.regs[n]
	snapshot := make([]*registration, len(list))
	copy(snapshot, list)
	r.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	start := r.clock.Now()
	for _, reg := range snapshot {
		if _, err := reg.pipeline.Process(ctx, &Dispatch{Node: n}); err != nil {
			capitan.Emit(ctx, DispatchFailed,
				KeyMap.Field(r.owner.name),
				KeyNode.Field(n.name),
				KeyHandle.Field(int(reg.id)),
				KeyError.Field(err.Error()),
			)
			if r.metrics != nil {
				r.metrics.OnDispatchError(n.name, r.clock.Since(start))
			}
		}
	}
	if r.metrics != nil {
		r.metrics.OnDispatch(n.name, len(snapshot), r.clock.Since(start))
	}
}

// releaseAll force-releases every outstanding registration and returns how
// many were orphaned. Called from Map.Close.
func (r *Registry) releaseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	released := len(r.byID)
	r.regs = make(map[*Node][]*registration)
	r.byID = make(map[uint64]*registration)
	return released
}
