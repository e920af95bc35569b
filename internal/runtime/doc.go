// Package runtime wires storage, configuration, and logging into a
// single-node rangeflow instance. It owns record appends (sequence
// assignment, batched commits) and constructs scan sources over named
// spaces, translating request-level options (sequence bounds, CEL filter,
// skip-corrupt) into pkg/scan configuration.
package runtime
