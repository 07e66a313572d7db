package audio

import (
	"encoding/binary"
	"testing"

	"github.com/foxseedlab/mensetsu/internal/audio"
)

func TestFrameQueueDropsOldestWhenFull(t *testing.T) {
	q := &frameQueue{}
	for i := 0; i < maxQueuedFrames+3; i++ {
		q.push([]int16{int16(i)})
	}
	if len(q.frames) != maxQueuedFrames {
		t.Fatalf("expected %d frames, got %d", maxQueuedFrames, len(q.frames))
	}
	first, ok := q.pop()
	if !ok || first[0] != 3 {
		t.Fatalf("expected oldest kept frame 3, got %v", first)
	}
}

func TestMixQueuedFramesClamps(t *testing.T) {
	queues := map[string]*frameQueue{
		"a": {frames: [][]int16{{30000, -30000, 5}}},
		"b": {frames: [][]int16{{10000, -10000}}},
		"c": {},
	}
	mixed := make([]int16, 3)
	mixQueuedFrames(queues, mixed)
	if mixed[0] != 32767 || mixed[1] != -32768 || mixed[2] != 5 {
		t.Fatalf("unexpected mix: %v", mixed)
	}
	if hasQueuedFrames(queues) {
		t.Fatal("expected every queue to be drained")
	}
}

func TestWriteMixedPCMLittleEndian(t *testing.T) {
	buf := make([]byte, 4)
	n := writeMixedPCM(buf, []int16{1, -2, 3})
	if n != 4 {
		t.Fatalf("expected 4 bytes, got %d", n)
	}
	if got := int16(binary.LittleEndian.Uint16(buf[2:])); got != -2 {
		t.Fatalf("expected -2, got %d", got)
	}
}

func TestFrameLayout(t *testing.T) {
	if audio.FrameBytes != 3840 {
		t.Fatalf("unexpected frame size %d", audio.FrameBytes)
	}
}
