package transform

import "time"

// DiscardTransformer implements Transformer by doing nothing: it exists
// so the capture pipeline can be exercised end-to-end before a real
// decimation/archival collaborator is wired in.
type DiscardTransformer struct{}

func (DiscardTransformer) ProcessBlock(block []byte, ts time.Time) error { return nil }
