package common

// KeyCode is a virtual key code. Values match GLFW key codes, which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type KeyCode uint32

const (
	KeyW         KeyCode = 87  // W key (ASCII)
	KeyA         KeyCode = 65  // A key (ASCII)
	KeyS         KeyCode = 83  // S key (ASCII)
	KeyD         KeyCode = 68  // D key (ASCII)
	KeyQ         KeyCode = 81  // Q key (ASCII)
	KeyE         KeyCode = 69  // E key (ASCII)
	KeyF         KeyCode = 70  // F key (ASCII)
	KeyP         KeyCode = 80  // P key (ASCII)
	KeyR         KeyCode = 82  // R key (ASCII)
	KeySpace     KeyCode = 32  // Spacebar (ASCII)
	KeyBackspace KeyCode = 259 // Backspace key (GLFW)
	KeyEsc       KeyCode = 256 // Escape key (GLFW)

	Key0 KeyCode = 48 // 0 key (ASCII)
	Key1 KeyCode = 49 // 1 key (ASCII)
	Key9 KeyCode = 57 // 9 key (ASCII)
)

// Additional non-printable keys
const (
	KeyLeftShift  KeyCode = 340 // Left Shift (GLFW)
	KeyRightShift KeyCode = 344 // Right Shift (GLFW)
)

// Digit returns the number of a digit key and whether k is one.
func (k KeyCode) Digit() (int, bool) {
	if k < Key0 || k > Key9 {
		return 0, false
	}
	return int(k - Key0), true
}
