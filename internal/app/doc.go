// Package app contains the core application logic. It wires the project
// model, the planner, the tool registry and the executor together and owns
// the run lifecycle, decoupled from any specific entrypoint like a CLI.
package app
