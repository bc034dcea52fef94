package tokenizer

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ModelProto, TrainerSpec and NormalizerSpec field numbers from
// sentencepiece_model.proto.
const (
	fieldPieces         protowire.Number = 1
	fieldTrainerSpec    protowire.Number = 2
	fieldNormalizerSpec protowire.Number = 3

	fieldPiece protowire.Number = 1

	fieldModelType protowire.Number = 3

	fieldAddDummyPrefix         protowire.Number = 3
	fieldRemoveExtraWhitespaces protowire.Number = 4
)

const (
	modelTypeUnigram = 1
	modelTypeBPE     = 2
)

var modelTypeNames = map[uint64]string{1: "unigram", 2: "bpe", 3: "word", 4: "char"}

// header is what the pure Go backend needs to know about a model before
// handing it to the processor.
type header struct {
	pieces                 []string
	modelType              uint64
	hasNormalizer          bool
	addDummyPrefix         *bool
	removeExtraWhitespaces *bool
}

// readHeader scans the serialized ModelProto once for the piece strings,
// the trainer model type and the normalizer switches.
func readHeader(data []byte) (header, error) {
	h := header{modelType: modelTypeUnigram}
	err := eachField(data, func(num protowire.Number, typ protowire.Type, val []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldPieces:
			piece, err := readPiece(val)
			if err != nil {
				return err
			}
			h.pieces = append(h.pieces, piece)
		case fieldTrainerSpec:
			return eachField(val, func(num protowire.Number, typ protowire.Type, _ []byte, v uint64) error {
				if num == fieldModelType && typ == protowire.VarintType {
					h.modelType = v
				}
				return nil
			})
		case fieldNormalizerSpec:
			h.hasNormalizer = true
			return eachField(val, func(num protowire.Number, typ protowire.Type, _ []byte, v uint64) error {
				if typ != protowire.VarintType {
					return nil
				}
				b := protowire.DecodeBool(v)
				switch num {
				case fieldAddDummyPrefix:
					h.addDummyPrefix = &b
				case fieldRemoveExtraWhitespaces:
					h.removeExtraWhitespaces = &b
				}
				return nil
			})
		}
		return nil
	})
	return h, err
}

// checkPureGo reports why the pure Go processor cannot run the model. It
// implements BPE only, and needs both normalizer switches explicitly off
// since it neither adds the dummy prefix nor collapses whitespace.
func (h header) checkPureGo() error {
	if h.modelType != modelTypeBPE {
		name, ok := modelTypeNames[h.modelType]
		if !ok {
			name = fmt.Sprintf("type %d", h.modelType)
		}
		return fmt.Errorf("%s models need the sentencepiece build tag", name)
	}
	if !h.hasNormalizer {
		return errors.New("missing normalizer spec")
	}
	if h.addDummyPrefix == nil || *h.addDummyPrefix {
		return errors.New("add_dummy_prefix must be disabled")
	}
	if h.removeExtraWhitespaces == nil || *h.removeExtraWhitespaces {
		return errors.New("remove_extra_whitespaces must be disabled")
	}
	return nil
}

func readPiece(msg []byte) (string, error) {
	var piece string
	err := eachField(msg, func(num protowire.Number, typ protowire.Type, val []byte, _ uint64) error {
		if num == fieldPiece && typ == protowire.BytesType {
			piece = string(val)
		}
		return nil
	})
	return piece, err
}

// eachField walks the top level fields of msg. Length-delimited values are
// passed as val, varints as v; other wire types are skipped.
func eachField(msg []byte, fn func(num protowire.Number, typ protowire.Type, val []byte, v uint64) error) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]

		var (
			val []byte
			v   uint64
		)
		switch typ {
		case protowire.BytesType:
			val, n = protowire.ConsumeBytes(msg)
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(msg)
		default:
			n = protowire.ConsumeFieldValue(num, typ, msg)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]

		if err := fn(num, typ, val, v); err != nil {
			return err
		}
	}
	return nil
}
