// Package download fetches the layers of an image manifest concurrently. Layers
// that share a digest are fetched once. Every fetch task reports progress by
// sending immutable Event values on one channel, and a single consumer applies
// them to the progress Table (which nothing else mutates) and hands a snapshot to
// an Observer after every update.
//
// The lifecycle of one table entry is:
//
//	Unknown -> Downloading -> Completed
//	                       -> Failed
//	                       -> Cancelled
//
// An entry is Completed only on an explicit end-of-stream signal from its task,
// and only if the byte count matches the content length when the registry sent
// one.
package download
