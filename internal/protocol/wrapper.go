package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MsgType определяет тип сообщения потока чанков
type MsgType string

// Типы сообщений, которые получает клиент
const (
	MsgWorldStatus      MsgType = "world_status"
	MsgWorldRegenerated MsgType = "world_regenerated"
	MsgClearChunks      MsgType = "clear_chunks"
	MsgChunkData        MsgType = "chunk_data"
	MsgError            MsgType = "error"
)

// GameMsg представляет сообщение потока с полезной нагрузкой в JSON
type GameMsg struct {
	Type      MsgType         `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewGameMsg создает сообщение и сериализует полезную нагрузку.
// nil payload дает сообщение без полезной нагрузки.
func NewGameMsg(msgType MsgType, payload interface{}) (*GameMsg, error) {
	msg := &GameMsg{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload == nil {
		return msg, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации полезной нагрузки %s: %w", msgType, err)
	}
	msg.Payload = data
	return msg, nil
}

// DecodePayload десериализует полезную нагрузку в указанную структуру
func (m *GameMsg) DecodePayload(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("сообщение %s не содержит полезной нагрузки", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("ошибка десериализации полезной нагрузки %s: %w", m.Type, err)
	}
	return nil
}

// WorldStatus полезная нагрузка world_status и world_regenerated
type WorldStatus struct {
	GenerationID string `json:"generationId"`
	Seed         uint32 `json:"seed"`
	State        string `json:"state"`
	ChunkCount   int    `json:"chunkCount"`
}
