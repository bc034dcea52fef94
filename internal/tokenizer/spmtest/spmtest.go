// Package spmtest builds small serialized SentencePiece models for tests.
package spmtest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// Piece types from sentencepiece_model.proto.
const (
	Normal      = 1
	Unknown     = 2
	Control     = 3
	UserDefined = 4
)

// Model types from sentencepiece_model.proto.
const (
	Unigram = 1
	BPE     = 2
)

// Piece is one vocabulary entry; its id is its position in the model.
type Piece struct {
	Text  string
	Score float32
	Type  uint64
}

// Options controls the trainer and normalizer specs written with the pieces.
// Normalizer false omits the normalizer spec entirely.
type Options struct {
	ModelType              uint64
	Normalizer             bool
	AddDummyPrefix         bool
	RemoveExtraWhitespaces bool
}

// Model serializes pieces and opts as a ModelProto.
func Model(pieces []Piece, opts Options) []byte {
	var out []byte
	for _, p := range pieces {
		var msg []byte
		msg = protowire.AppendTag(msg, 1, protowire.BytesType)
		msg = protowire.AppendString(msg, p.Text)
		msg = protowire.AppendTag(msg, 2, protowire.Fixed32Type)
		msg = protowire.AppendFixed32(msg, math.Float32bits(p.Score))
		msg = protowire.AppendTag(msg, 3, protowire.VarintType)
		msg = protowire.AppendVarint(msg, p.Type)

		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, msg)
	}

	var trainer []byte
	trainer = protowire.AppendTag(trainer, 3, protowire.VarintType)
	trainer = protowire.AppendVarint(trainer, opts.ModelType)
	out = protowire.AppendTag(out, 2, protowire.BytesType)
	out = protowire.AppendBytes(out, trainer)

	if opts.Normalizer {
		var norm []byte
		norm = protowire.AppendTag(norm, 1, protowire.BytesType)
		norm = protowire.AppendString(norm, "identity")
		norm = protowire.AppendTag(norm, 3, protowire.VarintType)
		norm = protowire.AppendVarint(norm, protowire.EncodeBool(opts.AddDummyPrefix))
		norm = protowire.AppendTag(norm, 4, protowire.VarintType)
		norm = protowire.AppendVarint(norm, protowire.EncodeBool(opts.RemoveExtraWhitespaces))
		norm = protowire.AppendTag(norm, 5, protowire.VarintType)
		norm = protowire.AppendVarint(norm, protowire.EncodeBool(true))
		out = protowire.AppendTag(out, 3, protowire.BytesType)
		out = protowire.AppendBytes(out, norm)
	}
	return out
}

func special() []Piece {
	return []Piece{
		{Text: "<unk>", Type: Unknown},
		{Text: "<s>", Type: Control},
		{Text: "</s>", Type: Control},
	}
}

func chars(score float32, texts ...string) []Piece {
	out := make([]Piece, 0, len(texts))
	for _, t := range texts {
		out = append(out, Piece{Text: t, Score: score, Type: Normal})
	}
	return out
}

// HelloWorldBPEPieces is a BPE vocabulary whose merges segment
// "Hello world!" as Hello, ▁world, !.
func HelloWorldBPEPieces() []Piece {
	pieces := special()
	pieces = append(pieces,
		Piece{Text: "He", Score: -1, Type: Normal},
		Piece{Text: "ll", Score: -2, Type: Normal},
		Piece{Text: "Hell", Score: -3, Type: Normal},
		Piece{Text: "Hello", Score: -4, Type: Normal},
		Piece{Text: "▁w", Score: -5, Type: Normal},
		Piece{Text: "or", Score: -6, Type: Normal},
		Piece{Text: "ld", Score: -7, Type: Normal},
		Piece{Text: "▁wor", Score: -8, Type: Normal},
		Piece{Text: "▁world", Score: -9, Type: Normal},
	)
	pieces = append(pieces, chars(-20, "H", "e", "l", "o", "▁", "w", "r", "d", "!")...)
	// The Go processor sizes its merge buffer by the longest piece.
	pieces = append(pieces, Piece{Text: "▁▁▁▁▁▁▁▁▁▁▁▁▁▁▁▁", Score: -100, Type: Normal})
	return pieces
}

// HelloWorldBPE is HelloWorldBPEPieces serialized with the normalizer
// switches the pure Go processor accepts.
func HelloWorldBPE() []byte {
	return Model(HelloWorldBPEPieces(), Options{ModelType: BPE, Normalizer: true})
}

// HelloWorldUnigram is a unigram model in the shape Marian exports: dummy
// prefix and whitespace cleanup on, ▁Hello and ▁world as whole pieces.
func HelloWorldUnigram() []byte {
	pieces := special()
	pieces = append(pieces,
		Piece{Text: "▁Hello", Score: -1, Type: Normal},
		Piece{Text: "▁world", Score: -1, Type: Normal},
		Piece{Text: "!", Score: -2, Type: Normal},
	)
	pieces = append(pieces, chars(-20, "▁", "H", "e", "l", "o", "w", "r", "d")...)
	return Model(pieces, Options{
		ModelType:              Unigram,
		Normalizer:             true,
		AddDummyPrefix:         true,
		RemoveExtraWhitespaces: true,
	})
}

// Write stores data as name under dir and returns the path.
func Write(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}
