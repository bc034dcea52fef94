package tokenizer

import (
	"bytes"
	"fmt"
	"os"

	"github.com/eliben/go-sentencepiece"
)

// SentencePiece is a pure Go Model for BPE SentencePiece files. Unigram
// models, which Marian exports, are served by the native backend.
type SentencePiece struct {
	path  string
	proc  *sentencepiece.Processor
	ids   map[string]int
	size  int
	unkID int
}

var _ Model = (*SentencePiece)(nil)

// LoadSentencePiece parses the BPE model stored at path.
func LoadSentencePiece(path string) (*SentencePiece, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: read %s: %w", path, err)
	}

	h, err := readHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedModel, path, err)
	}
	if len(h.pieces) == 0 {
		return nil, fmt.Errorf("%w: %s: empty piece table", ErrMalformedModel, path)
	}
	if err := h.checkPureGo(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedModel, path, err)
	}

	proc, err := newProcessor(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedModel, path, err)
	}

	ids := make(map[string]int, len(h.pieces))
	for id, piece := range h.pieces {
		if _, dup := ids[piece]; !dup {
			ids[piece] = id
		}
	}

	info := proc.ModelInfo()
	return &SentencePiece{
		path:  path,
		proc:  proc,
		ids:   ids,
		size:  info.VocabularySize,
		unkID: info.UnknownID,
	}, nil
}

func newProcessor(data []byte) (proc *sentencepiece.Processor, err error) {
	defer func() {
		if r := recover(); r != nil {
			proc, err = nil, fmt.Errorf("processor: %v", r)
		}
	}()
	return sentencepiece.NewProcessor(bytes.NewReader(data))
}

// Path returns the file the model was loaded from.
func (m *SentencePiece) Path() string { return m.path }

// EncodeAsPieces implements Model.
func (m *SentencePiece) EncodeAsPieces(text string) ([]string, error) {
	if m.proc == nil {
		return nil, ErrClosed
	}
	tokens := m.proc.Encode(text)
	pieces := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		pieces = append(pieces, tok.Text)
	}
	return pieces, nil
}

// DecodePieces implements Model. Pieces missing from the vocabulary decode
// as the unknown piece, or fail with ErrUnknownPiece when there is none.
func (m *SentencePiece) DecodePieces(pieces []string) (string, error) {
	if m.proc == nil {
		return "", ErrClosed
	}
	ids := make([]int, 0, len(pieces))
	for _, piece := range pieces {
		id, ok := m.ids[piece]
		if !ok {
			if m.unkID < 0 {
				return "", fmt.Errorf("%w: %q", ErrUnknownPiece, piece)
			}
			id = m.unkID
		}
		ids = append(ids, id)
	}
	return m.proc.Decode(ids), nil
}

// VocabSize implements Model.
func (m *SentencePiece) VocabSize() int { return m.size }

// Close implements Model.
func (m *SentencePiece) Close() error {
	m.proc = nil
	m.ids = nil
	return nil
}
