package audio

import "time"

// PCM layout shared by the mixer and the speech stream: 48kHz stereo
// signed 16-bit little endian, 20ms frames.
const (
	SampleRate    = 48000
	Channels      = 2
	FrameDuration = 20 * time.Millisecond
	FrameSamples  = SampleRate / 1000 * 20 * Channels
	FrameBytes    = FrameSamples * 2
)

type Mixer interface {
	WriteOpusPacket(speakerID string, opus []byte)
	ReadMixedPCM(buf []byte) (int, error)
	Close()
}

type MixerFactory func() Mixer
