// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"

	"github.com/larook/chatstream-gw/pkg/core/api"
)

// resultClass collapses an attempt outcome into the three cases the
// policy cares about.
type resultClass int

const (
	resultOK resultClass = iota
	resultClientError
	resultFatal
)

func classify(err error) resultClass {
	if err == nil {
		return resultOK
	}
	if apiErr, ok := api.AsAPIError(err); ok && apiErr.IsClientError() {
		return resultClientError
	}
	return resultFatal
}

// AttemptOptions narrow the payload across retries: each retry removes an
// optional field or pins the model, never adds anything, so the sequence
// terminates.
type AttemptOptions struct {
	DropPrompt    bool
	OverrideModel string
}

// RetryFallbackPolicy wraps a single logical request, streaming or not,
// with the two-stage narrowing recovery: on a client-class failure drop
// the prompt reference and retry once, then downgrade to the fallback
// model and retry once more. Everything else propagates unchanged. At
// most two retries are ever issued.
type RetryFallbackPolicy struct {
	// FallbackModel is the known-good model substituted in the second
	// stage. Empty disables the downgrade.
	FallbackModel string

	// Notify reports each recovery step to the caller before the retry
	// is issued.
	Notify func(message string)
}

// Attempt builds and sends the payload, applying the recovery stages. The
// build function is invoked fresh for every attempt.
func (p *RetryFallbackPolicy) Attempt(build func(opts AttemptOptions) (*api.Payload, error), send func(payload *api.Payload) error) error {
	opts := AttemptOptions{}

	payload, err := build(opts)
	if err != nil {
		return err
	}

	sendErr := send(payload)
	if classify(sendErr) != resultClientError {
		return sendErr
	}

	// Stage one: an unreliable prompt reference is the most common cause
	// of a client-class rejection.
	if payload.Prompt != nil {
		opts.DropPrompt = true
		p.notify(fmt.Sprintf("Prompt reference %q was rejected by the provider; retrying without it.", payload.Prompt.ID))

		payload, err = build(opts)
		if err != nil {
			return err
		}
		sendErr = send(payload)
		if classify(sendErr) != resultClientError {
			return sendErr
		}
	}

	// Stage two: downgrade to the configured safe model.
	if p.FallbackModel != "" && payload.Model != p.FallbackModel {
		opts.OverrideModel = p.FallbackModel
		p.notify(fmt.Sprintf("Model %q was rejected by the provider; falling back to %q.", payload.Model, p.FallbackModel))

		payload, err = build(opts)
		if err != nil {
			return err
		}
		return send(payload)
	}

	return sendErr
}

func (p *RetryFallbackPolicy) notify(message string) {
	if p.Notify != nil {
		p.Notify(message)
	}
}
