//go:build !ctranslate2

package ct2

// NativeAvailable reports whether the CTranslate2 runtime is compiled in.
func NativeAvailable() bool { return false }

// NewNativeTranslator returns ErrNativeUnavailable when the runtime is not built.
func NewNativeTranslator(modelDir string, cfg LoadConfig) (Translator, error) {
	return nil, ErrNativeUnavailable
}
