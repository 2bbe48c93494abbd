// Package cli implements the stylusport command-line interface.
//
// The cli package provides:
// - The mcp command that serves the handbook to LLM agents
// - Handbook search and chapter listing from the terminal
// - A pager for reading chapters, with browser integration
package cli
