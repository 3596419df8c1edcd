// Package crdt provides the convergence capability behind the document
// hub. The hub only relays and materializes; the merge algorithm is
// swappable behind DocumentMerge.
package crdt

// DocumentMerge merges opaque update frames into an authoritative
// replica. Applying the same frames in any order, any number of times,
// yields identical content.
//
// Implementations are not goroutine safe; the owner serializes access.
type DocumentMerge interface {
	// ApplyUpdate merges one wire frame into the replica.
	ApplyUpdate(frame []byte) error
	// Serialize emits the fully merged state as a single update frame
	// suitable for bootstrapping a late joiner.
	Serialize() []byte
	// Content renders the merged document text.
	Content() string
}

// Factory materializes a replica for a document, seeded from the last
// persisted content.
type Factory func(documentID, initialContent string) DocumentMerge
