//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"handy/log"
)

var (
	samples   map[Cue][]int16
	soundOnce sync.Once
	playMu    sync.Mutex
)

func initSound() {
	samples = make(map[Cue][]int16, len(tones))
	for c, t := range tones {
		samples[c] = stereo(synth(t))
	}
}

// stereo interleaves each mono sample into both channels.
func stereo(mono []float64) []int16 {
	out := make([]int16, len(mono)*2)
	for i, s := range mono {
		v := toInt16(s)
		out[i*2] = v
		out[i*2+1] = v
	}
	return out
}

func Init() {
	soundOnce.Do(initSound)
}

func play(c Cue) {
	soundOnce.Do(initSound)
	go playSamples(samples[c])
}

func playSamples(buf []int16) {
	if len(buf) == 0 {
		return
	}
	playMu.Lock()
	defer playMu.Unlock()

	client, err := pulse.NewClient()
	if err != nil {
		log.Debugf("beep: pulse unavailable: %v", err)
		return
	}
	defer client.Close()

	pos := 0
	reader := pulse.Int16Reader(func(out []int16) (int, error) {
		if pos >= len(buf) {
			return 0, pulse.EndOfData
		}
		n := copy(out, buf[pos:])
		pos += n
		return n, nil
	})
	stream, err := client.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		log.Debugf("beep: playback stream: %v", err)
		return
	}
	defer stream.Close()
	stream.Start()
	stream.Drain()
	stream.Stop()
}
