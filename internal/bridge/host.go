package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/plan"
	"github.com/google/uuid"
)

// DefaultPullTimeout bounds how long Save waits for PCP_FULL_STATE.
const DefaultPullTimeout = 3 * time.Second

var (
	// ErrReadOnly is returned by Save on a session announced as read-only.
	ErrReadOnly = errors.New("bridge: session is read-only")
	// ErrStateCapture means the document's state could not be obtained;
	// the user should reload the page.
	ErrStateCapture = errors.New("could not capture the plan state, reload the page and try again")
	// ErrEmptyState is a PCP_FULL_STATE without a payload.
	ErrEmptyState = errors.New("bridge: empty state returned by document")
)

// DirectReader reads the document's live state without a message round
// trip. It is a best-effort fast path: any error or nil state falls back to
// messaging.
type DirectReader interface {
	ReadState(ctx context.Context) (*State, error)
}

// Persister stores a captured snapshot.
type Persister interface {
	SaveAll(ctx context.Context, snap plan.Snapshot) error
}

type Options struct {
	PullTimeout time.Duration
	Direct      DirectReader
	Logger      logging.Logger
}

type pullResult struct {
	state *State
	err   error
}

// Host is the host side of one bridge session.
type Host struct {
	id          string
	t           Transport
	direct      DirectReader
	logger      logging.Logger
	pullTimeout time.Duration
	coverage    CoverageCache

	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.Mutex
	isAdmin bool
	pending map[string]chan pullResult
	order   []string
	closed  bool
}

func NewHost(t Transport, opts Options) *Host {
	if opts.PullTimeout <= 0 {
		opts.PullTimeout = DefaultPullTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	id := uuid.NewString()
	return &Host{
		id:          id,
		t:           t,
		direct:      opts.Direct,
		logger:      opts.Logger.With("module", "bridge", "session", id),
		pullTimeout: opts.PullTimeout,
		ready:       make(chan struct{}),
		pending:     make(map[string]chan pullResult),
	}
}

func (h *Host) ID() string { return h.id }

// Ready is closed once the document has sent PCP_IFRAME_READY.
func (h *Host) Ready() <-chan struct{} { return h.ready }

func (h *Host) IsAdmin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isAdmin
}

// Coverage exposes the session's coverage cache.
func (h *Host) Coverage() *CoverageCache { return &h.coverage }

// Run reads and dispatches messages until ctx is done or the transport
// fails. Pending pulls are failed with ErrClosed on return.
func (h *Host) Run(ctx context.Context) error {
	defer h.failPending(ErrClosed)

	for {
		m, err := h.t.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		h.dispatch(ctx, m)
	}
}

func (h *Host) dispatch(ctx context.Context, m Message) {
	switch m.Type {
	case TypeIframeReady:
		h.readyOnce.Do(func() { close(h.ready) })

	case TypeFullState:
		res := pullResult{err: ErrEmptyState}
		if plan.Present(m.Payload) {
			var st State
			if err := json.Unmarshal(m.Payload, &st); err != nil {
				res = pullResult{err: fmt.Errorf("bridge: bad state payload: %w", err)}
			} else {
				res = pullResult{state: &st}
			}
		}
		if !h.resolve(m.ID, res) {
			h.logger.Debug(ctx, "unsolicited full state dropped", "id", m.ID)
		}

	case TypeCoverage, TypeSetState:
		var env coverageEnvelope
		if plan.Present(m.Payload) && json.Unmarshal(m.Payload, &env) == nil {
			if v := h.coverage.Set(CoverageBroadcast, env.Coverage); v > 0 {
				h.logger.Debug(ctx, "coverage absorbed", "version", v)
			}
		}

	default:
		h.logger.Debug(ctx, "unknown message ignored", "type", m.Type)
	}
}

// Announce tells the document whether it may edit.
func (h *Host) Announce(ctx context.Context, isAdmin bool) error {
	h.mu.Lock()
	h.isAdmin = isAdmin
	h.mu.Unlock()

	m, err := newMessage(TypeMode, "", ModePayload{IsAdmin: isAdmin, Session: h.id})
	if err != nil {
		return err
	}
	return h.t.Send(ctx, m)
}

// Hydrate sends the stored plan to the document, then its coverage when
// there is any.
func (h *Host) Hydrate(ctx context.Context, fs *plan.FullState) error {
	st := hydratePayload{
		Version:  stateVersion,
		Weeks:    nonNilRaw(fs.Weeks),
		Comments: nonNilRaw(fs.Comments),
		Params:   fs.Params,
		Notes:    fs.Notes,
	}
	if st.Notes == nil {
		st.Notes = map[string]string{}
	}
	if !plan.Present(st.Params) {
		st.Params = json.RawMessage("{}")
	}

	m, err := newMessage(TypeSetState, "", st)
	if err != nil {
		return err
	}
	if err := h.t.Send(ctx, m); err != nil {
		return err
	}

	if !plan.Present(fs.Coverage) {
		return nil
	}
	h.coverage.Set(CoverageHydrated, fs.Coverage)
	return h.t.Send(ctx, Message{Type: TypeSetCoverage, Payload: fs.Coverage})
}

// Pull asks the document for its state and waits for the answer or ctx.
// Several pulls may be in flight; each is matched by request id.
func (h *Host) Pull(ctx context.Context) (*State, error) {
	id := uuid.NewString()
	ch := make(chan pullResult, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.pending[id] = ch
	h.order = append(h.order, id)
	h.mu.Unlock()

	if err := h.t.Send(ctx, Message{Type: TypeGetState, ID: id}); err != nil {
		h.forget(id)
		return nil, err
	}

	select {
	case res := <-ch:
		return res.state, res.err
	case <-ctx.Done():
		h.forget(id)
		return nil, ctx.Err()
	}
}

// Save captures the document's state and hands it, with the best known
// coverage, to p.
func (h *Host) Save(ctx context.Context, p Persister) error {
	if !h.IsAdmin() {
		return ErrReadOnly
	}

	st, err := h.capture(ctx)
	if err != nil {
		return err
	}

	snap := st.Snapshot()
	cov := h.coverage.Merge(st.Coverage)
	snap.Coverage = cov.Data
	h.logger.Info(ctx, "saving captured state", "coverage", cov.Source.String(), "weeks", len(snap.Weeks))

	return p.SaveAll(ctx, snap)
}

// capture tries the direct read, then a bounded pull, then the direct read
// once more.
func (h *Host) capture(ctx context.Context) (*State, error) {
	if st, ok := h.readDirect(ctx); ok {
		return st, nil
	}

	pctx, cancel := context.WithTimeout(ctx, h.pullTimeout)
	defer cancel()

	st, err := h.Pull(pctx)
	if err == nil {
		return st, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if st, ok := h.readDirect(ctx); ok {
		return st, nil
	}

	h.logger.Warn(ctx, "state capture failed", "error", err)
	return nil, fmt.Errorf("%w: %w", ErrStateCapture, err)
}

func (h *Host) readDirect(ctx context.Context) (*State, bool) {
	if h.direct == nil {
		return nil, false
	}
	st, err := h.direct.ReadState(ctx)
	if err != nil {
		h.logger.Debug(ctx, "direct read failed, using messages", "error", err)
		return nil, false
	}
	return st, st != nil
}

// resolve delivers res to the pull with the given id, or to the oldest
// pending pull when id is empty.
func (h *Host) resolve(id string, res pullResult) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id == "" {
		if len(h.order) == 0 {
			return false
		}
		id = h.order[0]
	}
	ch, ok := h.pending[id]
	if !ok {
		return false
	}
	h.removeLocked(id)
	ch <- res
	return true
}

func (h *Host) forget(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Host) removeLocked(id string) {
	delete(h.pending, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Host) failPending(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.pending {
		ch <- pullResult{err: err}
		delete(h.pending, id)
	}
	h.order = nil
}

// Close closes the underlying transport.
func (h *Host) Close() error {
	return h.t.Close()
}

func nonNilRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return map[string]json.RawMessage{}
	}
	return m
}
