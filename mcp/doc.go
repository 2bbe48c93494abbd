// Package mcp implements the StylusPort::Solana Model Context Protocol server.
//
// The mcp package provides:
// - JSON-RPC 2.0 framing over stdin/stdout, newline or Content-Length delimited
// - A worker pool fed by a single reader and drained by a single writer
// - The method dispatcher and its initialize/ready/shutdown lifecycle
// - The handbook tools, chapter resources and migration prompt
package mcp
