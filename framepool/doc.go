// Package framepool arbitrates a fixed set of encoded-frame buffers between
// one producer and one consumer.
//
// A Pool owns N slots carved from a single arena. Each slot moves through
//
//	Free -> Filling -> Filled -> CheckedOut -> Free
//
// and its index travels between two FIFOs: the free queue feeding the
// producer and the filled queue feeding the consumer. Ownership of the buffer
// moves with the index, so buffer contents need no locking.
//
// Under the OverwriteOldest policy the producer never waits: when no slot is
// free it takes the oldest filled slot that the consumer has not checked out
// yet and the frame in it is dropped. Under Block the producer waits for the
// consumer instead.
package framepool
