package valkey

import (
	"context"
	"time"
)

// Deduper marks inbound provider event ids so a redelivered event is
// processed at most once across all servers sharing the same Valkey.
type Deduper struct {
	client *Client
	ttl    time.Duration
}

func NewDeduper(client *Client, ttl time.Duration) *Deduper {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{client: client, ttl: ttl}
}

// MarkOnce records the event id with SET NX EX. It returns true when this
// call is the first observer of the id. On transport errors it reports true:
// processing twice is preferable to dropping an event.
func (d *Deduper) MarkOnce(ctx context.Context, eventID string) bool {
	key := d.client.Key("dedup", eventID)
	cmd := d.client.Inner().B().Set().Key(key).Value("1").Nx().Ex(d.ttl).Build()
	err := d.client.Inner().Do(ctx, cmd).Error()
	if err == nil {
		return true
	}
	if IsNil(err) {
		return false
	}
	return true
}
