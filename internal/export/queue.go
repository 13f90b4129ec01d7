// Package export queues question snapshot exports on a Valkey stream so that
// a worker can write them to object storage outside the request path.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	StreamName = "notebook:exports"
	GroupName  = "notebook-export-workers"

	blockMillis  = 5000
	pendingBatch = 10
)

// Message is the payload enqueued for an export.
type Message struct {
	QuestionID  uuid.UUID `json:"question_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Producer enqueues export jobs to the Valkey stream.
type Producer struct {
	client valkey.Client
}

func NewProducer(client valkey.Client) *Producer {
	return &Producer{client: client}
}

// Enqueue publishes msg and returns the stream entry id.
func (p *Producer) Enqueue(ctx context.Context, msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal export: %w", err)
	}

	resp := p.client.Do(ctx, p.client.B().Xadd().
		Key(StreamName).Id("*").
		FieldValue().FieldValue("data", string(data)).
		Build())
	if err := resp.Error(); err != nil {
		return "", fmt.Errorf("xadd export: %w", err)
	}

	id, err := resp.ToString()
	if err != nil {
		return "", fmt.Errorf("parse xadd response: %w", err)
	}
	return id, nil
}

// Handler processes one export. A returned error leaves the entry pending so
// that it is retried on the next start.
type Handler func(context.Context, Message) error

// Consumer reads export jobs from the Valkey stream.
type Consumer struct {
	client     valkey.Client
	consumerID string
	logger     *slog.Logger
}

func NewConsumer(client valkey.Client, consumerID string, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, consumerID: consumerID, logger: logger}
}

// EnsureGroup creates the consumer group if it doesn't exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	resp := c.client.Do(ctx, c.client.B().XgroupCreate().
		Key(StreamName).Group(GroupName).Id("0").Mkstream().Build())
	if err := resp.Error(); err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

// Consume blocks reading exports until ctx is done. Entries left pending by
// a previous run under the same consumer name are processed first.
func (c *Consumer) Consume(ctx context.Context, handle Handler) error {
	c.drainPending(ctx, handle)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		c.read(ctx, ">", 1, blockMillis, handle)
	}
}

// drainPending walks the pending entries list once, oldest first. Entries
// that fail again stay pending and are skipped by moving the start id past
// them.
func (c *Consumer) drainPending(ctx context.Context, handle Handler) {
	start := "0"
	for ctx.Err() == nil {
		last, n := c.read(ctx, start, pendingBatch, 0, handle)
		if n == 0 {
			return
		}
		start = last
	}
}

// read runs one XREADGROUP and handles what it returns. It reports the id of
// the last entry seen and how many entries there were.
func (c *Consumer) read(ctx context.Context, id string, count, block int64, handle Handler) (string, int) {
	cmd := c.client.B().Xreadgroup().Group(GroupName, c.consumerID).Count(count)
	var resp valkey.ValkeyResult
	if block > 0 {
		resp = c.client.Do(ctx, cmd.Block(block).Streams().Key(StreamName).Id(id).Build())
	} else {
		resp = c.client.Do(ctx, cmd.Streams().Key(StreamName).Id(id).Build())
	}
	if err := resp.Error(); err != nil {
		// BLOCK timeouts come back as nil replies.
		if !valkey.IsValkeyNil(err) && ctx.Err() == nil {
			c.logger.Warn("xreadgroup failed", slog.String("error", err.Error()))
		}
		return id, 0
	}

	results, err := resp.AsXRead()
	if err != nil {
		return id, 0
	}
	last, n := id, 0
	for _, entries := range results {
		for _, e := range entries {
			c.process(ctx, e, handle)
			last = e.ID
			n++
		}
	}
	return last, n
}

func (c *Consumer) process(ctx context.Context, e valkey.XRangeEntry, handle Handler) {
	msg, err := decode(e)
	if err != nil {
		c.logger.Error("dropping unreadable export", slog.String("id", e.ID), slog.String("error", err.Error()))
		c.ack(ctx, e.ID)
		return
	}

	if err := handle(ctx, msg); err != nil {
		c.logger.Error("export failed",
			slog.String("id", e.ID),
			slog.String("question_id", msg.QuestionID.String()),
			slog.String("error", err.Error()))
		return
	}
	c.ack(ctx, e.ID)
}

func decode(e valkey.XRangeEntry) (Message, error) {
	data, ok := e.FieldValues["data"]
	if !ok {
		return Message{}, fmt.Errorf("missing data field")
	}
	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal export: %w", err)
	}
	if msg.QuestionID == uuid.Nil {
		return Message{}, fmt.Errorf("missing question id")
	}
	return msg, nil
}

func (c *Consumer) ack(ctx context.Context, id string) {
	resp := c.client.Do(ctx, c.client.B().Xack().
		Key(StreamName).Group(GroupName).Id(id).Build())
	if err := resp.Error(); err != nil {
		c.logger.Error("xack failed", slog.String("error", err.Error()), slog.String("id", id))
	}
}
