//go:build !sentencepiece

package tokenizer

// NativeAvailable reports whether libsentencepiece is compiled in.
func NativeAvailable() bool { return false }

// NewNative returns ErrNativeUnavailable when libsentencepiece is not built.
func NewNative(path string) (Model, error) {
	return nil, ErrNativeUnavailable
}
