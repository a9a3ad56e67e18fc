package synthigme

import (
	"errors"
	"sync"

	intaudio "github.com/mesjetiu/synthigme-go/internal/audio"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	engineParams Params
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{engineParams: DefaultParams()}
}

// WithEngineParams overrides the engine topology and calibration.
func WithEngineParams(params Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.engineParams = params
	}
}

// Player drives an Engine through the platform audio device. Patching
// and dial changes go straight to the Engine, which stays safe to
// mutate while audio runs.
type Player struct {
	mu         sync.Mutex
	engine     *Engine
	audio      *intaudio.Player
	sampleRate int
	baseGain   float64
	volume     float64
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	engine, err := NewEngine(sampleRate, cfg.engineParams)
	if err != nil {
		return nil, err
	}
	return &Player{
		engine:     engine,
		sampleRate: sampleRate,
		baseGain:   cfg.engineParams.MasterGain,
		volume:     1,
	}, nil
}

// Engine exposes the underlying engine for patching, dials and patch
// documents.
func (p *Player) Engine() *Engine {
	return p.engine
}

// Start opens the audio stream and begins rendering. Calling Start on
// a running player is a no-op.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
		return nil
	}
	backend, err := intaudio.NewPlayer(p.sampleRate, p.engine)
	if err != nil {
		return err
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	return err
}

// SetMasterVolume sets the runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(p.baseGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition returns the output position of the audio driver in
// samples, i.e. what the listener actually hears right now. Returns 0
// when not playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}
