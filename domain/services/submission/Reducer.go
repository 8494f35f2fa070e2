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
	"errors"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/ports/out"
	"malscan-intake/domain/services/intake"
	"malscan-intake/domain/services/validation"
)

const (
	msgTransport   = "An error occurred during analysis"
	msgMalformed   = "Analysis service returned an invalid response"
	msgCancelled   = "Analysis cancelled"
	msgRateLimited = "Too many submissions, please try again later"
	msgUnreadable  = "Failed to read the selected file"
)

// State is the whole intake screen. Phase is Submitting exactly while RequestID names a
// request in flight. Draining names a cancelled request whose call has not returned yet; no
// other request starts until its completion arrives.
type State struct {
	Phase     entities.SubmissionState
	Intake    intake.State
	File      *entities.CandidateFile
	Result    *entities.AnalysisResult
	Error     string
	RequestID string
	Draining  string
}

func NewState() State {
	return State{Phase: entities.Idle}
}

func (s State) CanSubmit() bool {
	return s.File != nil && !s.InFlight()
}

// InFlight reports whether an analysis call, live or cancelled, has not returned yet.
func (s State) InFlight() bool {
	return s.Phase == entities.Submitting || s.Draining != ""
}

type Event interface {
	event()
}

type DragChanged struct {
	Kind intake.DragKind
}

type Dropped struct {
	Files []entities.RawFileMetadata
}

type Picked struct {
	Files []entities.RawFileMetadata
}

type SubmitRequested struct{}

type CancelRequested struct{}

type Completed struct {
	RequestID string
	Result    entities.AnalysisResult
	Err       error
}

// RetainFailed reports that the bytes of an accepted file could not be stored.
type RetainFailed struct {
	StorageID string
	Err       error
}

func (DragChanged) event()     {}
func (Dropped) event()         {}
func (Picked) event()          {}
func (SubmitRequested) event() {}
func (CancelRequested) event() {}
func (Completed) event()       {}
func (RetainFailed) event()    {}

// Command is a side effect requested by a transition. The controller executes them in order.
type Command interface {
	command()
}

type RetainFile struct {
	File    entities.CandidateFile
	Content entities.ContentSource
}

type DiscardFile struct {
	StorageID string
}

type IssueRequest struct {
	RequestID string
	File      entities.CandidateFile
}

type CancelRequest struct {
	RequestID string
}

type NotifyVerdict struct {
	File   entities.CandidateFile
	Result entities.AnalysisResult
}

type ReportRejection struct {
	Name   string
	Reason entities.ValidationError
}

func (RetainFile) command()      {}
func (DiscardFile) command()     {}
func (IssueRequest) command()    {}
func (CancelRequest) command()   {}
func (NotifyVerdict) command()   {}
func (ReportRejection) command() {}

type Reducer struct {
	validator *validation.FileValidator
	newID     func() string
}

// NewReducer takes the id generator used for storage and request ids so transitions stay
// deterministic under test.
func NewReducer(validator *validation.FileValidator, newID func() string) *Reducer {
	return &Reducer{validator: validator, newID: newID}
}

func (r *Reducer) Reduce(state State, event Event) (State, []Command) {
	switch e := event.(type) {
	case DragChanged:
		state.Intake = state.Intake.Drag(e.Kind)
		return state, nil
	case Dropped:
		var file entities.RawFileMetadata
		var ok bool

		state.Intake, file, ok = state.Intake.Drop(e.Files)
		if !ok {
			return state, nil
		}

		return r.selectFile(state, file)
	case Picked:
		file, ok := intake.First(e.Files)
		if !ok {
			return state, nil
		}

		return r.selectFile(state, file)
	case SubmitRequested:
		return r.submit(state)
	case CancelRequested:
		return r.cancel(state)
	case Completed:
		return r.complete(state, e)
	case RetainFailed:
		return r.retainFailed(state, e)
	default:
		return state, nil
	}
}

func (r *Reducer) selectFile(state State, file entities.RawFileMetadata) (State, []Command) {
	// The in-flight request owns the current file until it completes or is cancelled.
	if state.Phase == entities.Submitting {
		return state, nil
	}

	var commands []Command
	if state.File != nil {
		commands = append(commands, DiscardFile{StorageID: state.File.StorageID})
	}

	state.File = nil
	state.Result = nil

	outcome := r.validator.Validate(file)
	if !outcome.IsAccepted() {
		state.Phase = entities.Idle
		state.Error = r.validator.Describe(outcome.Reason)

		return state, append(commands, ReportRejection{Name: file.Name, Reason: outcome.Reason})
	}

	candidate := outcome.File
	candidate.StorageID = r.newID()

	state.Phase = entities.Ready
	state.File = &candidate
	state.Error = ""

	return state, append(commands, RetainFile{File: candidate, Content: file.Content})
}

func (r *Reducer) submit(state State) (State, []Command) {
	if !state.CanSubmit() {
		return state, nil
	}

	state.Phase = entities.Submitting
	state.RequestID = r.newID()
	state.Error = ""
	state.Result = nil

	return state, []Command{IssueRequest{RequestID: state.RequestID, File: *state.File}}
}

func (r *Reducer) cancel(state State) (State, []Command) {
	if state.Phase != entities.Submitting {
		return state, nil
	}

	requestID := state.RequestID
	state.Phase = entities.Failed
	state.RequestID = ""
	state.Draining = requestID
	state.Error = msgCancelled

	return state, []Command{CancelRequest{RequestID: requestID}}
}

func (r *Reducer) complete(state State, e Completed) (State, []Command) {
	// The outcome of a cancelled request is dropped, its return only unblocks submit.
	if e.RequestID != "" && e.RequestID == state.Draining {
		state.Draining = ""
		return state, nil
	}

	if state.Phase != entities.Submitting || e.RequestID != state.RequestID {
		return state, nil
	}

	state.RequestID = ""

	if e.Err != nil {
		state.Phase = entities.Failed
		state.Error = ErrorMessage(e.Err)

		return state, nil
	}

	result := e.Result
	state.Phase = entities.Succeeded
	state.Result = &result

	if result.Status == entities.Clean {
		return state, nil
	}

	return state, []Command{NotifyVerdict{File: *state.File, Result: result}}
}

func (r *Reducer) retainFailed(state State, e RetainFailed) (State, []Command) {
	if state.File == nil || state.File.StorageID != e.StorageID || state.Phase == entities.Submitting {
		return state, nil
	}

	state.Phase = entities.Idle
	state.File = nil
	state.Error = msgUnreadable

	return state, []Command{DiscardFile{StorageID: e.StorageID}}
}

// ErrorMessage is the text shown to the user for a failed analysis call.
func ErrorMessage(err error) string {
	var serverErr *out.ServerError
	var malformedErr *out.MalformedResponseError

	switch {
	case errors.As(err, &serverErr) && serverErr.Message != "":
		return serverErr.Message
	case errors.As(err, &malformedErr):
		return msgMalformed
	case errors.Is(err, out.ErrCancelled):
		return msgCancelled
	case errors.Is(err, out.ErrRateLimited):
		return msgRateLimited
	default:
		return msgTransport
	}
}
