// Package tokenizer wraps SentencePiece subword models.
package tokenizer

import "errors"

var (
	// ErrClosed is returned by a model used after Close.
	ErrClosed = errors.New("tokenizer: model closed")
	// ErrMalformedModel indicates the file is not a SentencePiece model.
	ErrMalformedModel = errors.New("tokenizer: malformed sentencepiece model")
	// ErrUnsupportedModel is returned by the pure Go backend for models it
	// cannot run; those need the native backend.
	ErrUnsupportedModel = errors.New("tokenizer: model needs the native sentencepiece backend")
	// ErrUnknownPiece is returned when decoding a piece outside the
	// vocabulary of a model that has no unknown piece.
	ErrUnknownPiece = errors.New("tokenizer: piece not in vocabulary")
	// ErrNativeUnavailable is returned when libsentencepiece is not compiled in.
	ErrNativeUnavailable = errors.New("tokenizer: native sentencepiece not built (missing sentencepiece build tag)")
)

// Model turns text into subword pieces and back.
type Model interface {
	// EncodeAsPieces splits text into vocabulary pieces.
	EncodeAsPieces(text string) ([]string, error)
	// DecodePieces joins pieces back into text.
	DecodePieces(pieces []string) (string, error)
	// VocabSize reports the number of pieces in the vocabulary.
	VocabSize() int
	// Close releases the model.
	Close() error
}

// Loader opens a tokenizer model from a file.
type Loader func(path string) (Model, error)

// Load opens path with libsentencepiece when it is compiled in, and with the
// pure Go BPE backend otherwise.
func Load(path string) (Model, error) {
	if NativeAvailable() {
		return NewNative(path)
	}
	return LoadSentencePiece(path)
}
