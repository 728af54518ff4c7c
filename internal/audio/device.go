package audio

import "sync/atomic"

// EchoGuard is raised while the bot speaks. Continuous capture drops every frame
// produced while it is up. A nil guard is never raised.
type EchoGuard struct {
	speaking atomic.Bool
}

func NewEchoGuard() *EchoGuard {
	return &EchoGuard{}
}

func (g *EchoGuard) Raise() {
	if g != nil {
		g.speaking.Store(true)
	}
}

func (g *EchoGuard) Lower() {
	if g != nil {
		g.speaking.Store(false)
	}
}

func (g *EchoGuard) Speaking() bool {
	return g != nil && g.speaking.Load()
}
