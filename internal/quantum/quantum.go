// Package quantum provides the kernel's hook into the remote quantum-state
// server (spec.md §6): the one mandatory synchronization point every
// ParallelTimeline barrier must complete before declaring a round done,
// plus clean teardown at shutdown. The kernel never models quantum state
// itself (that belongs to the domain layer this kernel simulates under),
// it only guarantees the flush happens at the right moment and that
// transient I/O failures are retried before being surfaced as run-fatal.
package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/qsequence/pdeskernel/internal/kernelerr"
	"github.com/qsequence/pdeskernel/internal/netutil"
)

// ManagerHook is what a Timeline calls into at every synchronization
// barrier and at shutdown. NoOp satisfies it when Config.QMIP/QMPort are
// both nil (spec.md's "simulation owns all quantum state locally" mode);
// Client satisfies it when a remote quantum-manager endpoint is
// configured.
type ManagerHook interface {
	// FlushMessageBuffer must complete before a ParallelTimeline may
	// declare the current sync round finished; it is the mechanism by
	// which locally-buffered quantum-state mutations become visible to
	// every other rank's view of shared quantum state.
	FlushMessageBuffer(ctx context.Context) error

	// DisconnectFromServer releases the connection at the end of a run.
	DisconnectFromServer(ctx context.Context) error
}

// NoOp is the ManagerHook used when no remote quantum-manager endpoint
// is configured. Both methods are trivially satisfied since there is no
// shared quantum state to flush or connection to release.
type NoOp struct{}

func (NoOp) FlushMessageBuffer(ctx context.Context) error  { return nil }
func (NoOp) DisconnectFromServer(ctx context.Context) error { return nil }

// Client is a thin HTTP client for a remote quantum-manager server. Its
// retry behavior rides on internal/netutil.RetryTransport so a transient
// connection blip during a flush doesn't abort an otherwise-healthy run;
// only a failure that survives every retry attempt is surfaced, and per
// spec.md §7 that failure is run-fatal (a flush the kernel cannot
// confirm landed can't be silently skipped without breaking the
// synchronization guarantee every other rank is relying on).
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client pointed at a quantum-manager server
// listening on ip:port.
func NewClient(ip string, port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", ip, port),
		http:    &http.Client{Transport: netutil.NewRetryTransport(nil)},
	}
}

func (c *Client) FlushMessageBuffer(ctx context.Context) error {
	return c.post(ctx, "/flush", nil)
}

func (c *Client) DisconnectFromServer(ctx context.Context) error {
	return c.post(ctx, "/disconnect", nil)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", kernelerr.ErrQuantumManagerIO, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", kernelerr.ErrQuantumManagerIO, resp.StatusCode)
	}
	return nil
}
