package renderer

// Settings are the tunables read every frame. They may be changed between
// frames, typically by the overlay.
type Settings struct {
	Gamma    float32
	Exposure float32
	// BloomAmount is the number of horizontal+vertical blur pairs. Zero
	// disables the blur; post-processing then reads the cleared buffer.
	BloomAmount int
	// BloomThreshold is the luminance above which a lit pixel feeds bloom.
	BloomThreshold float32
	// ShadowMapSize is the side of the square shadow map in texels. A change
	// reallocates the map before the next shadow pass.
	ShadowMapSize int
}

// DefaultSettings matches the demo scene.
func DefaultSettings() Settings {
	return Settings{
		Gamma:          2.2,
		Exposure:       1,
		BloomAmount:    5,
		BloomThreshold: 1,
		ShadowMapSize:  1024,
	}
}
