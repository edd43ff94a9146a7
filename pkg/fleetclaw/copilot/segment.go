// segment.go annotates a conversation with cache-boundary markers so a
// caching-aware backend can skip reprocessing the stable prefix. The
// conversation is append-only, so everything up to one message ago is
// guaranteed stable between turns.
package copilot

// Segment returns a deep copy of the conversation with the second-to-last
// message marked as a cache boundary. The marker goes on the last block of
// that message, so a plain text message is annotated as a whole and a
// structured message only on its final element.
//
// Segment never mutates its input and is idempotent: segmenting an
// unchanged conversation yields an identical result. As the conversation
// grows the boundary position only moves forward.
func Segment(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	if len(out) < 2 {
		return out
	}
	prev := &out[len(out)-2]
	if n := len(prev.Blocks); n > 0 {
		prev.Blocks[n-1].CacheBoundary = true
	}
	return out
}
