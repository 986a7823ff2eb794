package store

import (
	"context"
	"time"
)

type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	PartID    string
	Retries   int
	CreatedAt time.Time
	SentAt    *time.Time
}

func (q *Queries) EnqueueOutbox(ctx context.Context, topic string, payload []byte, msgType, partID string) error {
	_, err := q.run.ExecContext(ctx, q.Q(`INSERT INTO outbox (topic, payload, msg_type, part_id, created_at) VALUES (?, ?, ?, ?, ?)`),
		topic, payload, msgType, partID, q.ts(time.Now()))
	return translate(err)
}

// ListPendingOutbox returns unsent messages with fewer than maxRetries attempts.
func (q *Queries) ListPendingOutbox(ctx context.Context, limit, maxRetries int) ([]*OutboxMessage, error) {
	rows, err := q.run.QueryContext(ctx, q.Q(`SELECT id, topic, payload, msg_type, part_id, retries, created_at, sent_at FROM outbox WHERE sent_at IS NULL AND retries < ? ORDER BY id LIMIT ?`), maxRetries, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt, sentAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.PartID, &m.Retries, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		m.SentAt = parseTimePtr(sentAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (q *Queries) AckOutbox(ctx context.Context, id int64) error {
	_, err := q.run.ExecContext(ctx, q.Q(`UPDATE outbox SET sent_at=? WHERE id=?`), q.ts(time.Now()), id)
	return translate(err)
}

func (q *Queries) IncrementOutboxRetries(ctx context.Context, id int64) error {
	_, err := q.run.ExecContext(ctx, q.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return translate(err)
}
