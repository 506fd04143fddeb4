package camera

// Command is a discrete camera input produced by the window layer and applied
// between frames via Camera.Apply. The concrete variants are Pan, Zoom, Resize,
// Rotate and Reset.
type Command interface {
	isCommand()
}

// Pan moves the camera across the orbit sphere by a pointer-drag delta in pixels.
type Pan struct {
	DX, DY float32
}

// Zoom changes the orbit radius by a scroll delta.
type Zoom struct {
	Delta float32
}

// Resize reports a new viewport size in pixels.
type Resize struct {
	Width, Height int
}

// Rotate orbits the camera by a pointer-drag delta in pixels.
type Rotate struct {
	DYaw, DPitch float32
}

// Reset returns the camera to its initial position and basis.
type Reset struct{}

func (Pan) isCommand()    {}
func (Zoom) isCommand()   {}
func (Resize) isCommand() {}
func (Rotate) isCommand() {}
func (Reset) isCommand()  {}
