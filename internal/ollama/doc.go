// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
//
// Only the two endpoints a chat client needs are covered: the model list
// (GET /api/tags) and streaming chat completion (POST /api/chat).
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - ChatRequest: request body for /api/chat
//   - ChatStream: lazy, forward-only iterator over a streaming response
//   - StreamChunk: one incremental unit of generated text
//   - ClientError: typed error with an ErrorType for handling
//
// # Usage
//
//	client := ollama.NewClient()
//	models := client.ListModels(ctx) // never fails, see ModelsUnavailable
//
//	stream, err := client.ChatStream(ctx, ollama.ChatRequest{
//	    Model:    models[0],
//	    Messages: []ollama.Message{ollama.NewUserMessage("Hello")},
//	    Options:  &ollama.Options{Temperature: 0, NumPredict: 4000},
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Content)
//	}
package ollama
