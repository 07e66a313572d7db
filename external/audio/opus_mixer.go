//go:build opus

package audio

import (
	"sync"

	"github.com/foxseedlab/mensetsu/internal/audio"
	"github.com/hraban/opus"
)

// OpusMixer decodes each speaker's opus stream and sums the decoded
// frames into one PCM stream.
type OpusMixer struct {
	mu       sync.Mutex
	decoders map[string]*opus.Decoder
	queues   map[string]*frameQueue
	closed   bool
}

func NewOpusMixer() audio.Mixer {
	return &OpusMixer{
		decoders: make(map[string]*opus.Decoder),
		queues:   make(map[string]*frameQueue),
	}
}

func (m *OpusMixer) WriteOpusPacket(speakerID string, opusData []byte) {
	if len(opusData) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	dec, ok := m.decoders[speakerID]
	if !ok {
		var err error
		dec, err = opus.NewDecoder(audio.SampleRate, audio.Channels)
		if err != nil {
			return
		}
		m.decoders[speakerID] = dec
		m.queues[speakerID] = &frameQueue{}
	}
	pcm := make([]int16, audio.FrameSamples)
	n, err := dec.Decode(opusData, pcm)
	if err != nil || n <= 0 {
		return
	}
	total := min(n*audio.Channels, audio.FrameSamples)
	m.queues[speakerID].push(pcm[:total])
}

func (m *OpusMixer) ReadMixedPCM(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !hasQueuedFrames(m.queues) {
		return 0, nil
	}
	mixed := make([]int16, audio.FrameSamples)
	mixQueuedFrames(m.queues, mixed)
	return writeMixedPCM(buf, mixed), nil
}

func (m *OpusMixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.decoders = nil
	m.queues = nil
}
