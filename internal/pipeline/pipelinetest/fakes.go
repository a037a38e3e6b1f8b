package pipelinetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// Notifier records every request and answers with Fail's verdict.
type Notifier struct {
	mu       sync.Mutex
	requests []pipeline.NotificationRequest

	// Fail, when non-empty, is returned as the delivery error.
	Fail string
}

// Notify records req.
func (n *Notifier) Notify(_ context.Context, req pipeline.NotificationRequest) pipeline.NotificationResponse {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	if n.Fail != "" {
		return pipeline.NotificationResponse{Error: n.Fail}
	}
	return pipeline.NotificationResponse{Success: true}
}

// Requests returns the recorded requests.
func (n *Notifier) Requests() []pipeline.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]pipeline.NotificationRequest(nil), n.requests...)
}

// Publisher records change events.
type Publisher struct {
	mu     sync.Mutex
	events []types.ChangeEvent
}

// Publish records ev.
func (p *Publisher) Publish(_ context.Context, ev types.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

// Events returns the recorded events.
func (p *Publisher) Events() []types.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.ChangeEvent(nil), p.events...)
}

// Count returns how many events of kind were published.
func (p *Publisher) Count(kind types.EntityKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.EntityKind == kind {
			n++
		}
	}
	return n
}

// Inferer answers inference requests from a per-kind table. When Gate is set
// every call blocks until Gate is closed or the context ends.
type Inferer struct {
	mu        sync.Mutex
	responses map[pipeline.InferenceKind]pipeline.InferenceResponse
	calls     map[pipeline.InferenceKind]int

	Gate    chan struct{}
	Started chan pipeline.InferenceRequest
}

// NewInferer creates an Inferer with no responses; unknown kinds fail.
func NewInferer() *Inferer {
	return &Inferer{
		responses: make(map[pipeline.InferenceKind]pipeline.InferenceResponse),
		calls:     make(map[pipeline.InferenceKind]int),
	}
}

// Succeed makes kind return payload marshaled as JSON.
func (f *Inferer) Succeed(kind pipeline.InferenceKind, payload any) *Inferer {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[kind] = pipeline.InferenceResponse{Success: true, Payload: raw}
	return f
}

// Fail makes kind return msg as the inference error.
func (f *Inferer) Fail(kind pipeline.InferenceKind, msg string) *Inferer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[kind] = pipeline.InferenceResponse{Error: msg}
	return f
}

// Infer answers req.
func (f *Inferer) Infer(ctx context.Context, req pipeline.InferenceRequest) pipeline.InferenceResponse {
	f.mu.Lock()
	f.calls[req.Kind]++
	resp, ok := f.responses[req.Kind]
	f.mu.Unlock()

	if f.Started != nil {
		f.Started <- req
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return pipeline.InferenceResponse{Error: ctx.Err().Error()}
		}
	}
	if !ok {
		return pipeline.InferenceResponse{Error: "no response configured for " + string(req.Kind)}
	}
	return resp
}

// Calls returns how often kind was inferred.
func (f *Inferer) Calls(kind pipeline.InferenceKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}
