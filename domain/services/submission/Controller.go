/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"malscan-intake/common"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/ports/out"
	"malscan-intake/domain/services/intake"
	"malscan-intake/logging"
	"sync"

	"github.com/uber-go/tally/v4"
)

const (
	selectedCount  = "intake_selected"
	rejectedCount  = "intake_rejected"
	submittedCount = "submission_started"
	outcomeCount   = "submission_outcome"
	singleInc      = 1
)

var ErrControllerStopped = errors.New("submission controller stopped")

type envelope struct {
	event Event
	reply chan State
}

// Controller owns the intake state. Events are applied one at a time on a single goroutine, so
// the reducer never observes concurrent transitions.
type Controller struct {
	reducer  *Reducer
	store    out.CandidateStore
	analysis out.AnalysisService
	limiter  common.RateLimiter
	notifier out.Notifier

	logger       logging.Logger
	metricsScope tally.Scope

	events  chan envelope
	stopped chan struct{}
	runOnce sync.Once

	mu      sync.RWMutex
	state   State
	changed chan struct{}

	// Only touched from the loop goroutine.
	cancels map[string]context.CancelFunc
}

// NewController wires the reducer to its side effects. notifier may be nil.
func NewController(reducer *Reducer, store out.CandidateStore, analysis out.AnalysisService, limiter common.RateLimiter, notifier out.Notifier, metricsScope tally.Scope, logger logging.Logger) *Controller {
	if limiter == nil {
		limiter = common.UnlimitedRateLimiter{}
	}

	if metricsScope == nil {
		metricsScope = tally.NoopScope
	}

	return &Controller{
		reducer:      reducer,
		store:        store,
		analysis:     analysis,
		limiter:      limiter,
		notifier:     notifier,
		logger:       logger,
		metricsScope: metricsScope,
		events:       make(chan envelope),
		stopped:      make(chan struct{}),
		state:        NewState(),
		changed:      make(chan struct{}),
		cancels:      map[string]context.CancelFunc{},
	}
}

// Run starts the event loop. It returns immediately; the loop ends when ctx is done.
func (c *Controller) Run(ctx context.Context) {
	c.runOnce.Do(func() {
		c.logger.Infow("Start of submission controller")

		go c.loop(ctx)
	})
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.stopped)

	for {
		select {
		case <-ctx.Done():
			for id, cancel := range c.cancels {
				cancel()
				delete(c.cancels, id)
			}

			c.logger.Infow("End of submission controller")

			return
		case env := <-c.events:
			c.safeApply(ctx, env)
		}
	}
}

func (c *Controller) safeApply(ctx context.Context, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("Panic catch during event handling", "err", fmt.Errorf("%v", r), "event", fmt.Sprintf("%T", env.event))
		}

		if env.reply != nil {
			env.reply <- c.State()
		}
	}()

	c.apply(ctx, env.event)
}

func (c *Controller) apply(ctx context.Context, event Event) {
	if completed, ok := event.(Completed); ok {
		c.release(completed.RequestID)
	}

	state, commands := c.reducer.Reduce(c.State(), event)
	c.publish(state)

	for _, command := range commands {
		c.execute(ctx, command)
	}
}

func (c *Controller) execute(ctx context.Context, command Command) {
	switch cmd := command.(type) {
	case RetainFile:
		c.retain(ctx, cmd)
	case DiscardFile:
		if err := c.store.Discard(cmd.StorageID); err != nil {
			c.logger.Warnw("Failed to discard candidate file", "error", err, "storage_id", cmd.StorageID)
		}
	case IssueRequest:
		c.issue(ctx, cmd)
	case CancelRequest:
		c.release(cmd.RequestID)
		c.logger.Infow("Analysis cancelled", "request_id", cmd.RequestID)
	case NotifyVerdict:
		c.notify(ctx, cmd)
	case ReportRejection:
		c.metricsScope.Tagged(map[string]string{"reason": cmd.Reason.String()}).Counter(rejectedCount).Inc(singleInc)
		c.logger.Infow("Candidate file rejected", "file_name", cmd.Name, "reason", cmd.Reason.String())
	default:
		c.logger.Errorw("Unknown command", "command", fmt.Sprintf("%T", command))
	}
}

func (c *Controller) retain(ctx context.Context, cmd RetainFile) {
	err := c.storeContent(cmd)
	if err != nil {
		c.logger.Errorw("Failed to retain candidate file", "error", err, "file_name", cmd.File.Name, "storage_id", cmd.File.StorageID)
		c.apply(ctx, RetainFailed{StorageID: cmd.File.StorageID, Err: err})

		return
	}

	c.metricsScope.Counter(selectedCount).Inc(singleInc)
	c.logger.Debugw("Candidate file retained", "file_name", cmd.File.Name, "size", cmd.File.SizeBytes, "storage_id", cmd.File.StorageID)
}

func (c *Controller) storeContent(cmd RetainFile) error {
	if cmd.Content == nil {
		return fmt.Errorf("no content source for %s", cmd.File.Name)
	}

	content, err := cmd.Content()
	if err != nil {
		return fmt.Errorf("failed to open content. %w", err)
	}
	defer content.Close()

	return c.store.Put(cmd.File.StorageID, cmd.File.Name, cmd.File.SizeBytes, content)
}

func (c *Controller) issue(ctx context.Context, cmd IssueRequest) {
	if !c.limiter.IsRequestAllowed(ctx) {
		c.logger.Warnw("Submission rate limited", "request_id", cmd.RequestID, "file_name", cmd.File.Name)
		c.apply(ctx, Completed{RequestID: cmd.RequestID, Err: out.ErrRateLimited})

		return
	}

	content, err := c.store.Open(cmd.File.StorageID)
	if err != nil {
		c.logger.Errorw("Failed to open retained file", "error", err, "request_id", cmd.RequestID, "storage_id", cmd.File.StorageID)
		c.apply(ctx, Completed{RequestID: cmd.RequestID, Err: fmt.Errorf("failed to open retained file. %w", err)})

		return
	}

	requestCtx, cancel := context.WithCancel(ctx)
	c.cancels[cmd.RequestID] = cancel

	c.metricsScope.Counter(submittedCount).Inc(singleInc)
	c.logger.Infow("Submitting file for analysis", "request_id", cmd.RequestID, "file_name", cmd.File.Name, "size", cmd.File.SizeBytes)

	go func() {
		defer content.Close()

		result, err := c.analyze(requestCtx, cmd, content)
		if err != nil && requestCtx.Err() != nil {
			err = out.ErrCancelled
		}

		c.metricsScope.Tagged(map[string]string{"outcome": outcomeTag(result, err)}).Counter(outcomeCount).Inc(singleInc)

		if err != nil {
			c.logger.Errorw("Analysis failed", "error", err, "request_id", cmd.RequestID, "file_name", cmd.File.Name)
		}

		// Dropped when the controller is gone; the reducer ignores stale ids anyway.
		_ = c.post(ctx, Completed{RequestID: cmd.RequestID, Result: result, Err: err})
	}()
}

func (c *Controller) analyze(ctx context.Context, cmd IssueRequest, content io.Reader) (result entities.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("Panic catch during analysis", "err", fmt.Errorf("%v", r), "request_id", cmd.RequestID)
			result, err = entities.AnalysisResult{}, &out.TransportError{Err: fmt.Errorf("analysis panicked. %v", r)}
		}
	}()

	return c.analysis.Analyze(ctx, cmd.File, content)
}

func (c *Controller) notify(ctx context.Context, cmd NotifyVerdict) {
	if c.notifier == nil {
		return
	}

	go func() {
		if err := c.notifier.Notify(ctx, cmd.File, cmd.Result); err != nil {
			c.logger.Errorw("Failed to notify verdict", "error", err, "file_name", cmd.File.Name, "hash", cmd.Result.Hash)
		}
	}()
}

func (c *Controller) release(requestID string) {
	if cancel, ok := c.cancels[requestID]; ok {
		cancel()
		delete(c.cancels, requestID)
	}
}

func (c *Controller) publish(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) post(ctx context.Context, event Event) error {
	select {
	case c.events <- envelope{event: event}:
		return nil
	case <-c.stopped:
		return ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch applies event and returns the state right after it, before any asynchronous
// completion it triggered.
func (c *Controller) Dispatch(ctx context.Context, event Event) (State, error) {
	reply := make(chan State, 1)

	select {
	case c.events <- envelope{event: event, reply: reply}:
	case <-c.stopped:
		return c.State(), ErrControllerStopped
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}

	select {
	case state := <-reply:
		return state, nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

func (c *Controller) Drag(ctx context.Context, kind intake.DragKind) (State, error) {
	return c.Dispatch(ctx, DragChanged{Kind: kind})
}

func (c *Controller) Drop(ctx context.Context, files []entities.RawFileMetadata) (State, error) {
	return c.Dispatch(ctx, Dropped{Files: files})
}

func (c *Controller) Pick(ctx context.Context, files []entities.RawFileMetadata) (State, error) {
	return c.Dispatch(ctx, Picked{Files: files})
}

func (c *Controller) Submit(ctx context.Context) (State, error) {
	return c.Dispatch(ctx, SubmitRequested{})
}

func (c *Controller) Cancel(ctx context.Context) (State, error) {
	return c.Dispatch(ctx, CancelRequested{})
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// AwaitSettled blocks until no request is in flight, including a cancelled one still unwinding.
func (c *Controller) AwaitSettled(ctx context.Context) (State, error) {
	for {
		c.mu.RLock()
		state, changed := c.state, c.changed
		c.mu.RUnlock()

		if !state.InFlight() {
			return state, nil
		}

		select {
		case <-changed:
		case <-c.stopped:
			return c.State(), ErrControllerStopped
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

func outcomeTag(result entities.AnalysisResult, err error) string {
	switch {
	case errors.Is(err, out.ErrCancelled):
		return "cancelled"
	case err != nil:
		return "error"
	default:
		return string(result.Status)
	}
}
