// Package httpserver exposes rangeflow over HTTP: health, record append,
// and range scans streamed as Server-Sent Events. Scans ride the same
// pkg/scan sources the CLI uses; a disconnecting client cancels the request
// context, which closes the stream and releases its cursor.
package httpserver
