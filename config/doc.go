// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config reads and merges configuration from layered sources.
//
// A [Source] writes key value pairs into a [Store]. [Read] applies
// sources in order onto a single in-memory [Map], later sources
// overriding earlier ones, and [Manager.Unmarshal] decodes the result
// into a struct using "config" field tags:
//
//	m, err := config.Read(
//	    config.FromYaml(config.RenderTextTemplate(bytes.NewReader(defaults))),
//	    config.FromYaml(config.OpenFile("/etc/gateway.yaml")),
//	    config.FromEnv("GATEWAY_"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	var cfg server.Config
//	err = m.Unmarshal(&cfg)
//
// Keys are case-insensitive. Values are coerced where possible: strings
// decode into any type implementing [encoding.TextUnmarshaler] and
// into [time.Duration] via [time.ParseDuration].
package config
