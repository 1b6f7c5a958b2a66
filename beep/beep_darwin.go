//go:build darwin

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"handy/log"
)

var (
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	samples   map[Cue][]byte
	soundOnce sync.Once

	// read from the device callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
	playMu  sync.Mutex
)

// mono16 encodes samples as little-endian signed 16-bit mono PCM.
func mono16(mono []float64) []byte {
	out := make([]byte, len(mono)*2)
	for i, s := range mono {
		v := toInt16(s)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

func openDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, cfg, malgo.DeviceCallbacks{Data: fill})
	return err
}

func initSound() {
	samples = make(map[Cue][]byte, len(tones))
	for c, t := range tones {
		samples[c] = mono16(synth(t))
	}

	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Debugf("beep: malgo context: %v", err)
		return
	}
	if err := openDevice(); err != nil {
		log.Debugf("beep: playback device: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func fill(out, _ []byte, frameCount uint32) {
	clear(out)
	buf := current.Load()
	if buf == nil {
		return
	}
	p := pos.Load()
	total := uint32(len(*buf))
	if p >= total {
		current.Store(nil)
		return
	}
	n := min(frameCount*2, total-p)
	copy(out[:n], (*buf)[p:p+n])
	pos.Store(p + n)
}

func Init() {
	soundOnce.Do(initSound)
}

func play(c Cue) {
	soundOnce.Do(initSound)
	buf := samples[c]
	if malgoCtx == nil || len(buf) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}

	device.Stop()
	pos.Store(0)
	current.Store(&buf)

	if err := device.Start(); err != nil {
		// the device can go stale across sleep/wake; reopen once
		device.Uninit()
		if err := openDevice(); err != nil {
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			current.Store(nil)
		}
	}
}
