package world

// Layer is the collision category of an entity. Layers also give the
// iteration order of LayerOrdered.
type Layer uint8

const (
	LayerGeometry Layer = iota
	LayerUnit
	LayerProjectile
	LayerEffect

	layerCount
)

func (l Layer) valid() bool { return l < layerCount }

func (l Layer) String() string {
	switch l {
	case LayerGeometry:
		return "geometry"
	case LayerUnit:
		return "unit"
	case LayerProjectile:
		return "projectile"
	case LayerEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// collides reports whether entities on layers a and b interact.
func collides(a, b Layer) bool {
	if a == LayerEffect || b == LayerEffect {
		return false
	}
	return !(a == LayerGeometry && b == LayerGeometry)
}
