package scene3d

const (
	// HoverScale is the rendered size of a hovered item relative to its nominal scale.
	HoverScale = 1.1
	// PulseLerp is the fraction of the remaining distance covered per frame.
	PulseLerp = 0.1
	pulseSnap = 1e-4
)

// Pulse eases the rendered scale multiplier of one item. It is cosmetic and
// never written back to the item's stored scale.
type Pulse struct {
	factor float64
}

func newPulse() *Pulse { return &Pulse{factor: 1} }

func pulseTarget(active bool) float64 {
	if active {
		return HoverScale
	}
	return 1
}

// Step moves the multiplier toward HoverScale when active, toward 1 otherwise.
func (p *Pulse) Step(active bool) float64 {
	target := pulseTarget(active)
	p.factor += (target - p.factor) * PulseLerp
	if d := target - p.factor; d < pulseSnap && d > -pulseSnap {
		p.factor = target
	}
	return p.factor
}

// resting reports whether the multiplier has reached the target for active.
func (p *Pulse) resting(active bool) bool { return p.factor == pulseTarget(active) }
