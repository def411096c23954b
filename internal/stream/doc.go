// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream is relay's provider-agnostic streaming engine.
//
// Client.Send validates the prompt and credential, renders the rolling
// conversation context, records the prompt and an empty response turn, and
// then streams the provider's answer on a background goroutine. Each raw line
// goes through the provider's parser; text deltas are appended to the response
// turn and forwarded, in order, to the configured Sink. When the transport
// exits the job is classified as Completed, Failed or Cancelled.
//
// Only one job is live at a time. Sending while a job is running cancels it
// first; whatever text it produced stays in history.
//
// # Key Types
//
//   - Client: owns history, the job controller and the transport
//   - Transport / HTTPTransport: line-oriented streaming HTTP
//   - Sink / Pump: ordered, asynchronous delivery of deltas to a consumer
//   - Error / Kind: the error taxonomy surfaced to front ends
//   - Result: per-job summary passed to the finish callback
//
// # Usage
//
//	client := stream.New(
//	    stream.WithSink(stream.SinkFunc(func(s string) { fmt.Print(s) })),
//	    stream.WithOnFinish(func(r stream.Result) { fmt.Println() }),
//	)
//	defer client.Close()
//
//	j, err := client.Send(ctx, "What is 2+2?", cfg)
//	if err != nil {
//	    return err
//	}
//	<-j.Done()
package stream
