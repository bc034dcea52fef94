package engine

import (
	"fmt"
	"strings"
)

// PipelineError reports a failure inside one translation stage, including
// panics raised by the runtime or the tokenizers.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Translate runs text through encode, decode and normalization. Empty text
// returns "" without touching the runtime.
func (e *Engine) Translate(text string) (out string, err error) {
	if e.state != StateReady || e.translator == nil {
		return "", ErrNotReady
	}
	if text == "" {
		return "", nil
	}

	stage := "encode"
	defer recoverStage(&stage, &out, &err)

	pieces, err := e.source.EncodeAsPieces(text)
	if err != nil {
		return "", &PipelineError{Stage: stage, Err: err}
	}
	input := make([]string, 0, len(pieces)+1)
	input = append(input, pieces...)
	input = append(input, e.decoding.EndToken)

	stage = "translate"
	results, err := e.translator.TranslateBatch([][]string{input}, e.decoding.options())
	if err != nil {
		return "", &PipelineError{Stage: stage, Err: err}
	}
	if len(results) == 0 || len(results[0].Output()) == 0 {
		return "", ErrEmptyResult
	}
	output := results[0].Output()

	filtered := filterControlTokens(output)
	e.log.Debug("translated tokens", "input_tokens", len(input), "output_tokens", len(output), "kept_tokens", len(filtered))
	if len(filtered) == 0 {
		return "", nil
	}

	stage = "detokenize"
	decoded, err := e.target.DecodePieces(filtered)
	if err != nil {
		return "", &PipelineError{Stage: stage, Err: fmt.Errorf("%w: %v", ErrDecodeFailed, err)}
	}

	return strings.Trim(NormalizeText(decoded), trimCutset), nil
}

func filterControlTokens(tokens []string) []string {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		switch tok {
		case StartToken, PadToken, EndToken:
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}
