package gameproto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// BlockWire is a single block in a lookup or snapshot result.
type BlockWire struct {
	Name     string  `json:"name"`
	Pos      [3]int  `json:"pos"`
	Diggable bool    `json:"diggable"`
	Hardness float64 `json:"hardness,omitempty"`
}

// Block snapshots can be large, so the server may ship them as a
// zstd-compressed, base64-encoded JSON array instead of inline blocks.
type blockSnapshotWire struct {
	Encoding string          `json:"encoding,omitempty"`
	Data     string          `json:"data,omitempty"`
	Blocks   json.RawMessage `json:"blocks,omitempty"`
}

const encodingZstdBase64 = "zstd+base64"

// DecodeBlockSnapshot unpacks the RESULT payload of a BLOCKS_NEARBY command.
func DecodeBlockSnapshot(raw json.RawMessage) ([]BlockWire, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire blockSnapshotWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse block snapshot: %w", err)
	}

	blockJSON := []byte(wire.Blocks)
	switch wire.Encoding {
	case "":
	case encodingZstdBase64:
		comp, err := base64.StdEncoding.DecodeString(wire.Data)
		if err != nil {
			return nil, fmt.Errorf("decode block snapshot: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		blockJSON, err = dec.DecodeAll(comp, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress block snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown block snapshot encoding %q", wire.Encoding)
	}

	if len(blockJSON) == 0 {
		return nil, nil
	}
	var blocks []BlockWire
	if err := json.Unmarshal(blockJSON, &blocks); err != nil {
		return nil, fmt.Errorf("parse blocks: %w", err)
	}
	return blocks, nil
}

// EncodeBlockSnapshot is the inverse of DecodeBlockSnapshot; the client only
// needs it for tests and local tooling, the server is the usual producer.
func EncodeBlockSnapshot(blocks []BlockWire, compress bool) (json.RawMessage, error) {
	blockJSON, err := json.Marshal(blocks)
	if err != nil {
		return nil, err
	}
	var wire blockSnapshotWire
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, err
		}
		comp := enc.EncodeAll(blockJSON, nil)
		_ = enc.Close()
		wire.Encoding = encodingZstdBase64
		wire.Data = base64.StdEncoding.EncodeToString(comp)
	} else {
		wire.Blocks = blockJSON
	}
	return json.Marshal(wire)
}
