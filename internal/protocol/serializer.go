package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// MaxBlockID наибольший допустимый идентификатор блока в полезной нагрузке
const MaxBlockID = 13

// Encoding формат передачи чанков
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingZstd Encoding = "zstd" // JSON, сжатый zstd
)

var (
	// ErrUnknownEncoding возвращается для неподдерживаемого формата
	ErrUnknownEncoding = errors.New("unknown chunk encoding")
	// ErrMalformedChunk возвращается, если данные чанка не соответствуют размерам
	ErrMalformedChunk = errors.New("malformed chunk")
)

// SerializedChunk плоское представление чанка для клиента.
// Blocks индексируется как y*size*size + z*size + x.
type SerializedChunk struct {
	ChunkX int   `json:"chunkX"`
	ChunkZ int   `json:"chunkZ"`
	Size   int   `json:"size"`
	Height int   `json:"height"`
	Blocks []int `json:"blocks"`
}

// Validate проверяет согласованность размеров и значений блоков
func (sc SerializedChunk) Validate() error {
	if sc.Size <= 0 || sc.Height <= 0 {
		return fmt.Errorf("%w: size=%d height=%d", ErrMalformedChunk, sc.Size, sc.Height)
	}
	if want := sc.Size * sc.Size * sc.Height; len(sc.Blocks) != want {
		return fmt.Errorf("%w: expected %d blocks, got %d", ErrMalformedChunk, want, len(sc.Blocks))
	}
	for i, v := range sc.Blocks {
		if v < 0 || v > MaxBlockID {
			return fmt.Errorf("%w: block %d at index %d", ErrMalformedChunk, v, i)
		}
	}
	return nil
}

// BlockAt возвращает значение блока по локальным координатам или -1 за пределами
func (sc SerializedChunk) BlockAt(x, y, z int) int {
	if x < 0 || x >= sc.Size || z < 0 || z >= sc.Size || y < 0 || y >= sc.Height {
		return -1
	}
	idx := y*sc.Size*sc.Size + z*sc.Size + x
	if idx >= len(sc.Blocks) {
		return -1
	}
	return sc.Blocks[idx]
}

// ParseEncoding разбирает название формата; пустая строка означает JSON
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingZstd:
		return EncodingZstd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// ContentType возвращает MIME-тип для формата
func (e Encoding) ContentType() string {
	if e == EncodingZstd {
		return "application/zstd"
	}
	return "application/json"
}

// ChunkSerializer кодирует чанки для передачи.
// Кодировщик и декодер zstd безопасны для параллельного использования через EncodeAll/DecodeAll.
type ChunkSerializer struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewChunkSerializer создает сериализатор чанков
func NewChunkSerializer() (*ChunkSerializer, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd кодировщика: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("ошибка создания zstd декодера: %w", err)
	}
	return &ChunkSerializer{enc: enc, dec: dec}, nil
}

// Close освобождает ресурсы zstd
func (cs *ChunkSerializer) Close() error {
	cs.dec.Close()
	return cs.enc.Close()
}

// EncodeChunk сериализует один чанк
func (cs *ChunkSerializer) EncodeChunk(chunk SerializedChunk, encoding Encoding) ([]byte, error) {
	return cs.encode(chunk, encoding)
}

// EncodeChunks сериализует список чанков
func (cs *ChunkSerializer) EncodeChunks(chunks []SerializedChunk, encoding Encoding) ([]byte, error) {
	if chunks == nil {
		chunks = []SerializedChunk{}
	}
	return cs.encode(chunks, encoding)
}

// DecodeChunk десериализует и проверяет один чанк
func (cs *ChunkSerializer) DecodeChunk(data []byte, encoding Encoding) (SerializedChunk, error) {
	var chunk SerializedChunk
	if err := cs.decode(data, encoding, &chunk); err != nil {
		return SerializedChunk{}, err
	}
	if err := chunk.Validate(); err != nil {
		return SerializedChunk{}, err
	}
	return chunk, nil
}

// DecodeChunks десериализует и проверяет список чанков
func (cs *ChunkSerializer) DecodeChunks(data []byte, encoding Encoding) ([]SerializedChunk, error) {
	var chunks []SerializedChunk
	if err := cs.decode(data, encoding, &chunks); err != nil {
		return nil, err
	}
	for i, c := range chunks {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return chunks, nil
}

func (cs *ChunkSerializer) encode(v interface{}, encoding Encoding) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации в JSON: %w", err)
	}

	switch encoding {
	case EncodingJSON:
		return data, nil
	case EncodingZstd:
		return cs.enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
}

func (cs *ChunkSerializer) decode(data []byte, encoding Encoding, v interface{}) error {
	switch encoding {
	case EncodingJSON:
	case EncodingZstd:
		raw, err := cs.dec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("%w: zstd: %v", ErrMalformedChunk, err)
		}
		data = raw
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedChunk, err)
	}
	return nil
}
