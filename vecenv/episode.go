package vecenv

// EpisodeTracker follows episode activity per slot. A slot leaves its
// episode the moment a done flag is observed and must be put back in
// one (via Begin) before the enclosing step call returns; there is no
// externally visible terminal state.
type EpisodeTracker struct {
	inEpisode []bool
}

func NewEpisodeTracker(numSlots int) *EpisodeTracker {
	return &EpisodeTracker{
		inEpisode: make([]bool, numSlots),
	}
}

func (t *EpisodeTracker) BeginAll() {
	for i := range t.inEpisode {
		t.inEpisode[i] = true
	}
}

func (t *EpisodeTracker) Begin(slot int) {
	t.inEpisode[slot] = true
}

func (t *EpisodeTracker) InEpisode(slot int) bool {
	return t.inEpisode[slot]
}

// Observe reshapes a raw done flag into the terminated/truncated pair.
// Truncated stays false: this harness carries no time-limit layer, that
// belongs to the caller.
func (t *EpisodeTracker) Observe(slot int, done bool) (terminated bool, truncated bool) {
	if done {
		t.inEpisode[slot] = false
	}

	return done, false
}
