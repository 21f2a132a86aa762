package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is the internal representation of an event-bus message.
type Message struct {
	Key       string            // Partition key (entity id)
	Value     []byte            // JSON-encoded payload
	Headers   map[string]string // Message headers
	Topic     string            // Topic name
	Partition int               // Set by Kafka on consume
	Offset    int64             // Set by Kafka on consume
	Timestamp time.Time
}

// Header keys shared by all services.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderRetryCount    = "retry-count"
	HeaderOriginalTopic = "original-topic"
	HeaderFailureReason = "failure-reason"
)

type MessageBuilder struct {
	msg Message
}

func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		msg: Message{
			Headers:   make(map[string]string),
			Timestamp: time.Now(),
		},
	}
}

func (mb *MessageBuilder) WithKey(key string) *MessageBuilder {
	mb.msg.Key = key
	return mb
}

// WithValue JSON-encodes the payload. Marshal failures leave Value nil and
// surface as ErrEmptyValue on publish.
func (mb *MessageBuilder) WithValue(value any) *MessageBuilder {
	data, err := json.Marshal(value)
	if err != nil {
		mb.msg.Value = nil
		return mb
	}
	mb.msg.Value = data
	return mb
}

func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	mb.msg.Headers[key] = value
	return mb
}

func (mb *MessageBuilder) WithEventID(eventID string) *MessageBuilder {
	if eventID == "" {
		eventID = uuid.New().String()
	}
	mb.msg.Headers[HeaderEventID] = eventID
	return mb
}

func (mb *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	mb.msg.Headers[HeaderEventType] = eventType
	return mb
}

func (mb *MessageBuilder) WithSource(source string) *MessageBuilder {
	mb.msg.Headers[HeaderSource] = source
	return mb
}

func (mb *MessageBuilder) WithSchemaVersion(version string) *MessageBuilder {
	mb.msg.Headers[HeaderSchemaVersion] = version
	return mb
}

func (mb *MessageBuilder) Build() Message {
	if _, ok := mb.msg.Headers[HeaderEventID]; !ok {
		mb.msg.Headers[HeaderEventID] = uuid.New().String()
	}
	return mb.msg
}

func (m *Message) GetEventID() string {
	return m.Headers[HeaderEventID]
}

func (m *Message) GetEventType() string {
	return m.Headers[HeaderEventType]
}

func (m *Message) GetRetryCount() int {
	count := 0
	if v, ok := m.Headers[HeaderRetryCount]; ok {
		for _, c := range v {
			if c < '0' || c > '9' {
				return 0
			}
			count = count*10 + int(c-'0')
		}
	}
	return count
}

// Decode unmarshals the message payload into target.
func (m *Message) Decode(target any) error {
	return json.Unmarshal(m.Value, target)
}
