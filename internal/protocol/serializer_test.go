package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk() SerializedChunk {
	blocks := make([]int, 2*2*3)
	for i := range blocks {
		blocks[i] = i % (MaxBlockID + 1)
	}
	return SerializedChunk{ChunkX: -1, ChunkZ: 4, Size: 2, Height: 3, Blocks: blocks}
}

func TestSerializedChunkJSONShape(t *testing.T) {
	cs, err := NewChunkSerializer()
	require.NoError(t, err)
	defer cs.Close()

	data, err := cs.EncodeChunk(SerializedChunk{ChunkX: 1, ChunkZ: 2, Size: 1, Height: 1, Blocks: []int{5}}, EncodingJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunkX":1,"chunkZ":2,"size":1,"height":1,"blocks":[5]}`, string(data))
}

func TestEncodeDecodeZstd(t *testing.T) {
	cs, err := NewChunkSerializer()
	require.NoError(t, err)
	defer cs.Close()

	chunks := []SerializedChunk{testChunk(), testChunk()}
	chunks[1].ChunkX = 3

	data, err := cs.EncodeChunks(chunks, EncodingZstd)
	require.NoError(t, err)

	decoded, err := cs.DecodeChunks(data, EncodingZstd)
	require.NoError(t, err)
	assert.Equal(t, chunks, decoded)

	// Сжатые данные не читаются как JSON
	_, err = cs.DecodeChunks(data, EncodingJSON)
	assert.True(t, errors.Is(err, ErrMalformedChunk))
}

func TestEncodeEmptyList(t *testing.T) {
	cs, err := NewChunkSerializer()
	require.NoError(t, err)
	defer cs.Close()

	data, err := cs.EncodeChunks(nil, EncodingJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestUnknownEncoding(t *testing.T) {
	cs, err := NewChunkSerializer()
	require.NoError(t, err)
	defer cs.Close()

	_, err = cs.EncodeChunk(testChunk(), Encoding("gzip"))
	assert.ErrorIs(t, err, ErrUnknownEncoding)

	_, err = ParseEncoding("brotli")
	assert.ErrorIs(t, err, ErrUnknownEncoding)

	enc, err := ParseEncoding(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, EncodingZstd, enc)

	enc, err = ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, enc)
	assert.Equal(t, "application/json", enc.ContentType())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, testChunk().Validate())

	short := testChunk()
	short.Blocks = short.Blocks[:5]
	assert.ErrorIs(t, short.Validate(), ErrMalformedChunk)

	bad := testChunk()
	bad.Blocks[3] = 99
	assert.ErrorIs(t, bad.Validate(), ErrMalformedChunk)

	empty := SerializedChunk{}
	assert.ErrorIs(t, empty.Validate(), ErrMalformedChunk)
}

func TestDecodeChunkRejectsMalformed(t *testing.T) {
	cs, err := NewChunkSerializer()
	require.NoError(t, err)
	defer cs.Close()

	_, err = cs.DecodeChunk([]byte(`{"chunkX":0,"chunkZ":0,"size":2,"height":1,"blocks":[1]}`), EncodingJSON)
	assert.ErrorIs(t, err, ErrMalformedChunk)

	_, err = cs.DecodeChunk([]byte("not json"), EncodingJSON)
	assert.ErrorIs(t, err, ErrMalformedChunk)
}

func TestBlockAt(t *testing.T) {
	c := testChunk()
	// y=1, z=1, x=0 -> 1*4 + 1*2 + 0 = 6
	assert.Equal(t, 6, c.BlockAt(0, 1, 1))
	assert.Equal(t, -1, c.BlockAt(2, 0, 0))
	assert.Equal(t, -1, c.BlockAt(0, 3, 0))
}

func TestGameMsgPayload(t *testing.T) {
	msg, err := NewGameMsg(MsgWorldStatus, WorldStatus{GenerationID: "g1", Seed: 7, State: "ready", ChunkCount: 9})
	require.NoError(t, err)
	assert.Equal(t, MsgWorldStatus, msg.Type)

	var status WorldStatus
	require.NoError(t, msg.DecodePayload(&status))
	assert.Equal(t, uint32(7), status.Seed)
	assert.Equal(t, 9, status.ChunkCount)

	cleared, err := NewGameMsg(MsgClearChunks, nil)
	require.NoError(t, err)
	assert.Empty(t, cleared.Payload)
	assert.Error(t, cleared.DecodePayload(&status))
}
