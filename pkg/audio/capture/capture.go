// Package capture reads microphone audio via malgo and delivers it as
// fixed-size blocks of normalized float samples at the capture rate.
package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/voicelink-go/voicelink-lite/pkg/pcm"
)

// Microphone is a malgo capture device producing pcm.BlockSize sample blocks.
// It implements session.Source.
type Microphone struct {
	mu        sync.Mutex
	ctx       *malgo.AllocatedContext
	device    *malgo.Device
	assembler *blockAssembler
}

// NewMicrophone creates an unstarted microphone.
func NewMicrophone() *Microphone {
	return &Microphone{}
}

// Start opens the default capture device at the input format and invokes
// onBlock once per complete block, in capture order. The device data callback
// runs on malgo's audio thread; onBlock is called from there and must not
// block for long.
func (m *Microphone) Start(onBlock func(block []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return errors.New("microphone already started")
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	assembler := newBlockAssembler(pcm.BlockSize, onBlock)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(pcm.Channels)
	deviceConfig.SampleRate = uint32(pcm.InputRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			assembler.Push(float32sLE(pInputSamples))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start capture device: %w", err)
	}

	m.ctx = ctx
	m.device = device
	m.assembler = assembler
	return nil
}

// Stop stops and releases the capture device. A partial trailing block is
// discarded. Idempotent.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return nil
	}
	_ = m.device.Stop()
	m.device.Uninit()
	m.device = nil
	m.assembler = nil
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
	return nil
}

// blockAssembler buffers incoming samples and emits exact fixed-size blocks.
type blockAssembler struct {
	mu      sync.Mutex
	size    int
	pending []float32
	emit    func(block []float32)
}

func newBlockAssembler(size int, emit func(block []float32)) *blockAssembler {
	return &blockAssembler{size: size, emit: emit}
}

// Push appends samples and emits one callback per complete block. Leftover
// samples carry over to the next push.
func (a *blockAssembler) Push(samples []float32) {
	a.mu.Lock()
	a.pending = append(a.pending, samples...)
	var blocks [][]float32
	for len(a.pending) >= a.size {
		block := make([]float32, a.size)
		copy(block, a.pending[:a.size])
		a.pending = a.pending[a.size:]
		blocks = append(blocks, block)
	}
	a.mu.Unlock()

	for _, block := range blocks {
		a.emit(block)
	}
}

func float32sLE(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
