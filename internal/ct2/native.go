//go:build ctranslate2

package ct2

/*
#cgo CFLAGS: -I${SRCDIR}/csrc
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/ctranslate2/build -Wl,-rpath,${SRCDIR}/../../third_party/ctranslate2/build -lct2bridge -lctranslate2 -lstdc++ -lm

#include <stdlib.h>
#include "ct2bridge.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// NativeAvailable reports whether the CTranslate2 runtime is compiled in.
func NativeAvailable() bool { return true }

// NativeTranslator owns a ctranslate2::Translator through the C shim.
type NativeTranslator struct {
	mu sync.Mutex
	t  *C.ct2_translator
}

// NewNativeTranslator loads the CTranslate2 model stored in modelDir.
func NewNativeTranslator(modelDir string, cfg LoadConfig) (Translator, error) {
	if modelDir == "" {
		return nil, errors.New("ct2: model dir required")
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = "default"
	}

	cDir := C.CString(modelDir)
	defer C.free(unsafe.Pointer(cDir))
	cDevice := C.CString(cfg.Device)
	defer C.free(unsafe.Pointer(cDevice))
	cCompute := C.CString(cfg.ComputeType)
	defer C.free(unsafe.Pointer(cCompute))

	var cErr *C.char
	t := C.ct2_translator_new(cDir, cDevice, cCompute, C.int(cfg.Threads), &cErr)
	if t == nil {
		return nil, fmt.Errorf("ct2: load %s: %s", modelDir, takeError(cErr))
	}
	return &NativeTranslator{t: t}, nil
}

// TranslateBatch implements Translator.
func (n *NativeTranslator) TranslateBatch(batch [][]string, opts Options) ([]Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.t == nil {
		return nil, errors.New("ct2: translator closed")
	}

	results := make([]Result, 0, len(batch))
	for _, tokens := range batch {
		res, err := n.translateOne(tokens, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (n *NativeTranslator) translateOne(tokens []string, opts Options) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, nil
	}

	cTokens := (**C.char)(C.malloc(C.size_t(len(tokens)) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	defer C.free(unsafe.Pointer(cTokens))
	view := unsafe.Slice(cTokens, len(tokens))
	for i, tok := range tokens {
		view[i] = C.CString(tok)
	}
	defer func() {
		for _, p := range view {
			C.free(unsafe.Pointer(p))
		}
	}()

	cEnd := C.CString(opts.EndToken)
	defer C.free(unsafe.Pointer(cEnd))

	cOpts := C.ct2_options{
		beam_size:            C.int(opts.BeamSize),
		max_decoding_length:  C.int(opts.MaxDecodingLength),
		min_decoding_length:  C.int(opts.MinDecodingLength),
		repetition_penalty:   C.float(opts.RepetitionPenalty),
		no_repeat_ngram_size: C.int(opts.NoRepeatNgramSize),
		end_token:            cEnd,
		return_end_token:     boolToInt(opts.ReturnEndToken),
		disable_unk:          boolToInt(opts.DisableUnk),
		num_hypotheses:       C.int(opts.NumHypotheses),
	}

	var (
		out  C.ct2_result
		cErr *C.char
	)
	if rc := C.ct2_translate(n.t, cTokens, C.size_t(len(tokens)), &cOpts, &out, &cErr); rc != 0 {
		return Result{}, fmt.Errorf("ct2: translate: %s", takeError(cErr))
	}
	defer C.ct2_result_free(&out)

	count := int(out.num_hypotheses)
	if count == 0 {
		return Result{}, nil
	}
	lengths := unsafe.Slice(out.lengths, count)
	scores := unsafe.Slice(out.scores, count)
	total := 0
	for _, l := range lengths {
		total += int(l)
	}
	var all []*C.char
	if total > 0 {
		all = unsafe.Slice(out.tokens, total)
	}

	res := Result{
		Hypotheses: make([][]string, 0, count),
		Scores:     make([]float32, 0, count),
	}
	offset := 0
	for i := 0; i < count; i++ {
		hyp := make([]string, 0, int(lengths[i]))
		for j := 0; j < int(lengths[i]); j++ {
			hyp = append(hyp, C.GoString(all[offset+j]))
		}
		offset += int(lengths[i])
		res.Hypotheses = append(res.Hypotheses, hyp)
		res.Scores = append(res.Scores, float32(scores[i]))
	}
	return res, nil
}

// Close implements Translator.
func (n *NativeTranslator) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.t != nil {
		C.ct2_translator_free(n.t)
		n.t = nil
	}
	return nil
}

func takeError(cErr *C.char) string {
	if cErr == nil {
		return "unknown error"
	}
	defer C.ct2_string_free(cErr)
	return C.GoString(cErr)
}

func boolToInt(v bool) C.int {
	if v {
		return 1
	}
	return 0
}
