// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gateway defines the contract between a connection-per-request
// HTTP server and the application it serves.
//
// An application implements [Handler]. For every request it receives the
// request environment and a [StartResponseFunc]. It must call the func
// once with a status and headers before returning the response body as a
// sequence of chunks:
//
//	h := gateway.HandlerFunc(func(env environ.Environ, start gateway.StartResponseFunc) ([][]byte, error) {
//	    start("200 OK", []gateway.Header{{Name: "Content-Type", Value: "text/plain"}})
//	    return [][]byte{[]byte("Hello world\n")}, nil
//	})
//
// The server package accepts connections and drives a Handler. [Run]
// ties a config type, a [Builder] and config sources together into a
// running process:
//
//	err := gateway.Run(ctx, builder, config.FromYaml(f), config.FromEnv("GATEWAY_"))
package gateway
