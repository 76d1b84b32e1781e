package bridge

import (
	"context"
	"fmt"
	"sync"

	"imgharvest/pkg/logger"
)

// Collector produces the image URLs of the page an agent serves
type Collector interface {
	Collect() []string
}

// CollectorFunc adapts a function to the Collector interface
type CollectorFunc func() []string

func (f CollectorFunc) Collect() []string { return f() }

type envelope struct {
	req   Request
	reply chan Response
}

// Agent answers bridge requests on behalf of one loaded page. It serves one
// request at a time from its own goroutine.
type Agent struct {
	collector Collector
	requests  chan envelope
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	logger    logger.Logger
}

// NewAgent creates an agent serving collector. Call Start to begin serving.
func NewAgent(collector Collector, log logger.Logger) *Agent {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Agent{
		collector: collector,
		requests:  make(chan envelope),
		done:      make(chan struct{}),
		logger:    log,
	}
}

// Start launches the serving goroutine; it exits on Stop or when ctx is done
func (a *Agent) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.serve(ctx)
}

// Stop shuts the agent down and waits for the serving goroutine to exit.
// Clients calling afterwards get ErrUnavailable.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
	a.wg.Wait()
}

// Client returns a client bound to this agent
func (a *Agent) Client() *Client {
	return &Client{agent: a}
}

func (a *Agent) serve(ctx context.Context) {
	defer a.wg.Done()
	defer a.stopOnce.Do(func() { close(a.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case env := <-a.requests:
			// reply is buffered, so the answer never blocks on a departed client
			env.reply <- a.handle(env.req)
		}
	}
}

func (a *Agent) handle(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorWithFields("page agent handler panicked", map[string]interface{}{
				"action": req.Action,
				"panic":  fmt.Sprint(r),
			})
			resp = Response{Error: fmt.Sprintf("handler failed: %v", r)}
		}
	}()

	switch req.Action {
	case ActionGetImages:
		images := a.collector.Collect()
		if images == nil {
			images = []string{}
		}
		a.logger.DebugWithFields("answered getImages", map[string]interface{}{
			"images": len(images),
		})
		return Response{Images: images}
	default:
		a.logger.WarnWithFields("unknown bridge action", map[string]interface{}{
			"action": req.Action,
		})
		return Response{Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}
