package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/qsequence/pdeskernel/internal/kernelerr"
	"github.com/qsequence/pdeskernel/internal/netutil"
)

// HTTP is a networked Transport: every rank runs a small chi server
// exposing /exchange and /reduce, and talks directly to its peers'
// servers rather than routing through a coordinator process for
// AllToAll. AllReduceMin is the one exception: it is coordinated through
// rank 0, since a genuinely peer-to-peer min-reduce would need its own
// separate barrier protocol and this kernel only ever needs one reducer
// to exist.
//
// Retries ride on internal/netutil.RetryTransport, the same
// RoundTripper-decorator idiom the teacher's modules/httpclient uses for
// its logging transport, just swapped for retry-with-backoff behavior.
type HTTP struct {
	rank   int
	peers  []string // peers[i] = base URL of rank i, including this rank
	client *http.Client
	server *http.Server

	mu   sync.Mutex
	cond *sync.Cond

	a2aRound   int
	a2aArrived int
	a2aInbox   map[int][]byte

	redRound  int
	redInbox  map[int]int64
	redResult int64
}

// NewHTTP starts the local exchange server for rank and returns an HTTP
// transport addressed to peers (peers[rank] must be this process's own
// listen address). The caller must ensure every peer's server is
// reachable before the first collective call.
func NewHTTP(rank int, listenAddr string, peers []string) (*HTTP, error) {
	if rank < 0 || rank >= len(peers) {
		return nil, kernelerr.ErrUnknownPeer
	}
	h := &HTTP{
		rank:     rank,
		peers:    peers,
		client:   &http.Client{Transport: netutil.NewRetryTransport(nil)},
		a2aInbox: make(map[int][]byte),
		redInbox: make(map[int]int64),
	}
	h.cond = sync.NewCond(&h.mu)

	r := chi.NewRouter()
	r.Post("/exchange", h.handleExchange)
	r.Post("/reduce", h.handleReduce)

	h.server = &http.Server{Addr: listenAddr, Handler: r}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	go func() { _ = h.server.Serve(ln) }()
	return h, nil
}

func (h *HTTP) Rank() int      { return h.rank }
func (h *HTTP) WorldSize() int { return len(h.peers) }

type exchangeRequest struct {
	Round int    `json:"round"`
	From  int    `json:"from"`
	Data  []byte `json:"data"`
}

// handleExchange absorbs one peer's AllToAll payload for the current
// round. A late arrival for a round this server has already moved past
// can't happen in a correctly-paced run (every rank blocks its own
// AllToAll until its inbox is full before advancing), so rounds are
// trusted to line up without a reorder buffer.
func (h *HTTP) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	h.a2aInbox[req.From] = req.Data
	h.a2aArrived = len(h.a2aInbox)
	if h.a2aArrived == len(h.peers)-1 {
		h.cond.Broadcast()
	}
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

type reduceRequest struct {
	Round int   `json:"round"`
	From  int   `json:"from"`
	Value int64 `json:"value"`
}

type reduceResponse struct {
	Min int64 `json:"min"`
}

// handleReduce runs only on rank 0's server: it is the single collection
// point for AllReduceMin. Every non-zero rank POSTs its value here and
// blocks on the HTTP response for the jointly-computed minimum. It folds
// the arriving value into redInbox using the same generation-counter
// gate rank 0's own AllReduceMin call uses for its local value, so
// whichever of the len(peers) contributors arrives last is the one that
// computes the min and wakes everyone else — never a fixed "am I the
// HTTP handler" assumption that could race against rank 0's own call.
func (h *HTTP) handleReduce(w http.ResponseWriter, r *http.Request) {
	var req reduceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result := h.reduceFold(req.From, req.Value)
	_ = json.NewEncoder(w).Encode(reduceResponse{Min: result})
}

// reduceFold inserts value under key into redInbox and blocks until all
// len(peers) contributors for the current round have arrived, returning
// the jointly-computed minimum. Must only ever be called with rank 0 as
// receiver (either directly by rank 0's own AllReduceMin, or via
// handleReduce for a peer's POST).
func (h *HTTP) reduceFold(key int, value int64) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	myRound := h.redRound
	h.redInbox[key] = value

	if len(h.redInbox) == len(h.peers) {
		min := h.redInbox[0]
		for _, v := range h.redInbox {
			if v < min {
				min = v
			}
		}
		h.redResult = min
		h.redInbox = make(map[int]int64)
		h.redRound++
		h.cond.Broadcast()
	} else {
		for h.redRound == myRound {
			h.cond.Wait()
		}
	}
	return h.redResult
}

func (h *HTTP) AllToAll(ctx context.Context, outbound [][]byte) ([][]byte, error) {
	if len(outbound) != len(h.peers) {
		return nil, kernelerr.ErrExchangeSizeMismatch
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(h.peers))
	for peer, payload := range outbound {
		if peer == h.rank {
			continue
		}
		peer, payload := peer, payload
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.postExchange(ctx, peer, h.a2aRound, payload); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	h.mu.Lock()
	for h.a2aArrived < len(h.peers)-1 {
		if err := ctx.Err(); err != nil {
			h.mu.Unlock()
			return nil, err
		}
		h.cond.Wait()
	}
	inbound := make([][]byte, len(h.peers))
	for peer, data := range h.a2aInbox {
		inbound[peer] = data
	}
	inbound[h.rank] = outbound[h.rank]
	h.a2aInbox = make(map[int][]byte)
	h.a2aArrived = 0
	h.a2aRound++
	h.mu.Unlock()
	return inbound, nil
}

func (h *HTTP) postExchange(ctx context.Context, peer int, round int, payload []byte) error {
	body, err := json.Marshal(exchangeRequest{Round: round, From: h.rank, Data: payload})
	if err != nil {
		return err
	}
	url := h.peers[peer] + "/exchange"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("exchange to rank %d: %w", peer, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// AllReduceMin has rank 0 fold its own value directly into redInbox via
// reduceFold, the same path handleReduce uses for every other rank's
// POSTed value; whichever contributor completes the set computes the
// min for everyone. Non-zero ranks POST and block for the response.
func (h *HTTP) AllReduceMin(ctx context.Context, x int64) (int64, error) {
	if h.rank == 0 {
		return h.reduceFold(0, x), nil
	}

	body, err := json.Marshal(reduceRequest{From: h.rank, Value: x})
	if err != nil {
		return 0, err
	}
	url := h.peers[0] + "/reduce"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reduce request to rank 0: %w", err)
	}
	defer resp.Body.Close()
	var out reduceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Min, nil
}

func (h *HTTP) Close() error {
	return h.server.Close()
}
