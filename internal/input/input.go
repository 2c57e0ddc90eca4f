package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action represents a logical viewer action, not a physical key
type Action int

const (
	ActionPan Action = iota
	ActionRotate
	ActionPanLeft
	ActionPanRight
	ActionPanUp
	ActionPanDown
	ActionResetCamera
	ActionToggleStats
	ActionQuit
	ActionCount // Sentinel value for array sizing
)

// InputManager maps physical keys and buttons to actions and accumulates
// pointer motion between frames.
type InputManager struct {
	mu sync.RWMutex

	keyToActions         map[glfw.Key][]Action
	mouseButtonToActions map[glfw.MouseButton][]Action

	currentState [ActionCount]bool
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool

	cursorKnown bool
	cursor      [2]float64
	delta       [2]float64
	scroll      float64
}

// NewInputManager creates an InputManager with the default bindings
func NewInputManager() *InputManager {
	im := &InputManager{
		keyToActions:         make(map[glfw.Key][]Action),
		mouseButtonToActions: make(map[glfw.MouseButton][]Action),
	}

	im.BindKey(glfw.KeyA, ActionPanLeft)
	im.BindKey(glfw.KeyLeft, ActionPanLeft)
	im.BindKey(glfw.KeyD, ActionPanRight)
	im.BindKey(glfw.KeyRight, ActionPanRight)
	im.BindKey(glfw.KeyW, ActionPanUp)
	im.BindKey(glfw.KeyUp, ActionPanUp)
	im.BindKey(glfw.KeyS, ActionPanDown)
	im.BindKey(glfw.KeyDown, ActionPanDown)
	im.BindKey(glfw.KeyHome, ActionResetCamera)
	im.BindKey(glfw.KeyF3, ActionToggleStats)
	im.BindKey(glfw.KeyEscape, ActionQuit)

	im.BindMouseButton(glfw.MouseButtonLeft, ActionPan)
	im.BindMouseButton(glfw.MouseButtonRight, ActionRotate)
	return im
}

// BindKey binds a physical key to a logical action
// Multiple keys can be bound to the same action (e.g., WASD and arrow keys)
func (im *InputManager) BindKey(key glfw.Key, action Action) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if action < 0 || action >= ActionCount {
		return
	}
	im.keyToActions[key] = append(im.keyToActions[key], action)
}

// BindMouseButton binds a mouse button to a logical action
func (im *InputManager) BindMouseButton(button glfw.MouseButton, action Action) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if action < 0 || action >= ActionCount {
		return
	}
	im.mouseButtonToActions[button] = append(im.mouseButtonToActions[button], action)
}

func (im *InputManager) apply(actions []Action, isPressed bool) {
	for _, act := range actions {
		if isPressed && !im.currentState[act] {
			im.justPressed[act] = true
		}
		if !isPressed && im.currentState[act] {
			im.justReleased[act] = true
		}
		im.currentState[act] = isPressed
	}
}

// HandleKeyEvent processes a key event and updates internal state
func (im *InputManager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.apply(im.keyToActions[key], action == glfw.Press || action == glfw.Repeat)
}

// HandleMouseButtonEvent processes a mouse button event and updates internal state
func (im *InputManager) HandleMouseButtonEvent(button glfw.MouseButton, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.apply(im.mouseButtonToActions[button], action == glfw.Press)
}

// HandleCursorPos records pointer motion. The first event only sets the
// reference position.
func (im *InputManager) HandleCursorPos(x, y float64) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.cursorKnown {
		im.delta[0] += x - im.cursor[0]
		im.delta[1] += y - im.cursor[1]
	}
	im.cursor = [2]float64{x, y}
	im.cursorKnown = true
}

func (im *InputManager) HandleScroll(dy float64) {
	im.mu.Lock()
	im.scroll += dy
	im.mu.Unlock()
}

// SetCallbacks installs the GLFW callbacks for this input manager
func (im *InputManager) SetCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleKeyEvent(key, action)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleMouseButtonEvent(button, action)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		im.HandleCursorPos(x, y)
	})
	window.SetScrollCallback(func(w *glfw.Window, dx, dy float64) {
		im.HandleScroll(dy)
	})
}

// Cursor returns the last pointer position in window coordinates.
func (im *InputManager) Cursor() (x, y float64) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.cursor[0], im.cursor[1]
}

// MouseDelta returns pointer motion since the previous PostUpdate.
func (im *InputManager) MouseDelta() (dx, dy float64) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.delta[0], im.delta[1]
}

// Scroll returns wheel steps since the previous PostUpdate.
func (im *InputManager) Scroll() float64 {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.scroll
}

// PostUpdate must be called at the end of each frame to reset edges and
// accumulated motion
func (im *InputManager) PostUpdate() {
	im.mu.Lock()
	defer im.mu.Unlock()

	for i := range ActionCount {
		im.justPressed[i] = false
		im.justReleased[i] = false
	}
	im.delta = [2]float64{}
	im.scroll = 0
}

// IsActive returns true if the action is currently being held down
func (im *InputManager) IsActive(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.currentState[action]
}

// JustPressed returns true only if the action was pressed in the current frame
func (im *InputManager) JustPressed(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.justPressed[action]
}

// JustReleased returns true only if the action was released in the current frame
func (im *InputManager) JustReleased(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.justReleased[action]
}
