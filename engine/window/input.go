package window

import (
	"github.com/Carmen-Shannon/oxy-voxel/common"
	"github.com/Carmen-Shannon/oxy-voxel/engine/camera"
)

// noDrag marks that no button is held.
const noDrag MouseButton = -1

// InputMapper turns raw window events into camera commands.
//
// Left drag rotates, right or middle drag pans, the wheel zooms and framebuffer
// resizes become Resize commands. R resets the camera; every other key goes to the
// key handler. The mapper only produces commands; whoever owns the camera applies them.
type InputMapper struct {
	submit func(camera.Command) bool
	onKey  func(keyCode uint32)

	drag         MouseButton
	lastX, lastY int32
}

// InputMapperOption is a functional option for configuring an InputMapper.
type InputMapperOption func(*InputMapper)

// WithKeyHandler receives every key press the mapper does not consume.
//
// Parameters:
//   - fn: the handler
//
// Returns:
//   - InputMapperOption: option function to apply
func WithKeyHandler(fn func(keyCode uint32)) InputMapperOption {
	return func(m *InputMapper) {
		m.onKey = fn
	}
}

// NewInputMapper creates a mapper delivering commands to submit.
// submit must not block; it reports whether the command was accepted.
//
// Parameters:
//   - submit: the command sink
//   - options: functional options
//
// Returns:
//   - *InputMapper: the mapper, not yet bound to a window
func NewInputMapper(submit func(camera.Command) bool, options ...InputMapperOption) *InputMapper {
	m := &InputMapper{
		submit: submit,
		drag:   noDrag,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Bind registers the mapper's handlers as the window's input callbacks.
//
// Parameters:
//   - w: the window to listen to
func (m *InputMapper) Bind(w Window) {
	w.SetMouseButtonCallback(m.MouseButton)
	w.SetMouseMoveCallback(m.MouseMove)
	w.SetScrollCallback(m.Scroll)
	w.SetResizeCallback(m.Resize)
	w.SetKeyDownCallback(m.KeyDown)
}

// MouseButton starts a drag on press and ends it on release of the same button.
func (m *InputMapper) MouseButton(button MouseButton, pressed bool, x, y int32) {
	if pressed {
		if m.drag == noDrag {
			m.drag = button
			m.lastX, m.lastY = x, y
		}
		return
	}
	if button == m.drag {
		m.drag = noDrag
	}
}

// MouseMove emits Rotate or Pan with the pixel delta since the last event of the drag.
func (m *InputMapper) MouseMove(x, y int32) {
	if m.drag == noDrag {
		return
	}
	dx, dy := float32(x-m.lastX), float32(y-m.lastY)
	m.lastX, m.lastY = x, y
	if dx == 0 && dy == 0 {
		return
	}

	switch m.drag {
	case MouseButtonLeft:
		m.submit(camera.Rotate{DYaw: dx, DPitch: dy})
	case MouseButtonRight, MouseButtonMiddle:
		m.submit(camera.Pan{DX: dx, DY: dy})
	}
}

// Scroll emits Zoom; wheel up moves the camera closer.
func (m *InputMapper) Scroll(delta float32) {
	if delta == 0 {
		return
	}
	m.submit(camera.Zoom{Delta: -delta})
}

// Resize emits Resize for a non-empty framebuffer.
func (m *InputMapper) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.submit(camera.Resize{Width: width, Height: height})
}

// KeyDown emits Reset for R and forwards every other key.
func (m *InputMapper) KeyDown(keyCode uint32) {
	if keyCode == common.KeyR {
		m.submit(camera.Reset{})
		return
	}
	if m.onKey != nil {
		m.onKey(keyCode)
	}
}
