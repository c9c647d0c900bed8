// Package stream runs the capture, encode and delivery loop on top of a
// framepool.Pool and provides the sinks frames are delivered to.
package stream
