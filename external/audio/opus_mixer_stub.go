//go:build !opus

package audio

import "github.com/foxseedlab/mensetsu/internal/audio"

// Without the opus build tag no audio is decoded; the speech stream then
// receives nothing and only the scripted interviewer lines are produced.
type noopMixer struct{}

func NewOpusMixer() audio.Mixer {
	return &noopMixer{}
}

func (m *noopMixer) WriteOpusPacket(_ string, _ []byte) {}

func (m *noopMixer) ReadMixedPCM(_ []byte) (int, error) {
	return 0, nil
}

func (m *noopMixer) Close() {}
