//go:build sentencepiece

package tokenizer

/*
#cgo CFLAGS: -I${SRCDIR}/csrc
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/sentencepiece/build -Wl,-rpath,${SRCDIR}/../../third_party/sentencepiece/build -lspbridge -lsentencepiece -lstdc++ -lm

#include <stdlib.h>
#include "spbridge.h"
*/
import "C"

import (
	"fmt"
	"os"
	"sync"
	"unsafe"
)

// NativeAvailable reports whether libsentencepiece is compiled in.
func NativeAvailable() bool { return true }

// NativeModel owns a sentencepiece::SentencePieceProcessor through the C shim.
// It runs every model type libsentencepiece supports, unigram included.
type NativeModel struct {
	mu   sync.Mutex
	m    *C.sp_model
	path string
	size int
}

var _ Model = (*NativeModel)(nil)

// NewNative loads the model stored at path with libsentencepiece.
func NewNative(path string) (Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var cErr *C.char
	m := C.sp_model_new(cPath, &cErr)
	if m == nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedModel, path, takeError(cErr))
	}
	return &NativeModel{m: m, path: path, size: int(C.sp_piece_size(m))}, nil
}

// Path returns the file the model was loaded from.
func (n *NativeModel) Path() string { return n.path }

// PieceToID returns the id of piece, or the unknown id when it is not in
// the vocabulary.
func (n *NativeModel) PieceToID(piece string) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.m == nil {
		return 0, ErrClosed
	}
	cPiece := C.CString(piece)
	defer C.free(unsafe.Pointer(cPiece))
	return int(C.sp_piece_to_id(n.m, cPiece)), nil
}

// EncodeAsPieces implements Model.
func (n *NativeModel) EncodeAsPieces(text string) ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.m == nil {
		return nil, ErrClosed
	}

	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))

	var (
		cPieces **C.char
		count   C.size_t
		cErr    *C.char
	)
	if rc := C.sp_encode(n.m, cText, &cPieces, &count, &cErr); rc != 0 {
		return nil, fmt.Errorf("tokenizer: encode: %s", takeError(cErr))
	}
	defer C.sp_strings_free(cPieces, count)

	pieces := make([]string, 0, int(count))
	if count > 0 {
		for _, p := range unsafe.Slice(cPieces, int(count)) {
			pieces = append(pieces, C.GoString(p))
		}
	}
	return pieces, nil
}

// DecodePieces implements Model.
func (n *NativeModel) DecodePieces(pieces []string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.m == nil {
		return "", ErrClosed
	}
	if len(pieces) == 0 {
		return "", nil
	}

	cPieces := (**C.char)(C.malloc(C.size_t(len(pieces)) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(cPieces))
	view := unsafe.Slice(cPieces, len(pieces))
	for i, p := range pieces {
		view[i] = C.CString(p)
	}
	defer func() {
		for _, p := range view {
			C.free(unsafe.Pointer(p))
		}
	}()

	var (
		cOut *C.char
		cErr *C.char
	)
	if rc := C.sp_decode(n.m, cPieces, C.size_t(len(pieces)), &cOut, &cErr); rc != 0 {
		return "", fmt.Errorf("tokenizer: decode: %s", takeError(cErr))
	}
	defer C.sp_string_free(cOut)
	return C.GoString(cOut), nil
}

// VocabSize implements Model.
func (n *NativeModel) VocabSize() int { return n.size }

// Close implements Model.
func (n *NativeModel) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.m != nil {
		C.sp_model_free(n.m)
		n.m = nil
	}
	return nil
}

func takeError(cErr *C.char) string {
	if cErr == nil {
		return "unknown error"
	}
	defer C.sp_string_free(cErr)
	return C.GoString(cErr)
}
