// Package stages provides the built-in stage types: generator, passthrough,
// sink and script. RegisterBuiltins adds all of them to a stage registry.
//
// Generator and passthrough allow multiple instances. Sink is
// cancellation-aware and runs as a single instance. Script compiles its
// JavaScript body once and runs one VM per instance.
package stages
