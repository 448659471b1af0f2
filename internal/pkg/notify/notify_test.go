package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishWithoutConnection(t *testing.T) {
	SetNatsConn(nil)
	err := NatsPublisher{}.PublishCombatEvents(context.Background(), "s-1", map[string]int{"seq": 1})
	assert.NoError(t, err, "没有 NATS 连接时应静默降级")
}

func TestCombatEventsSubject(t *testing.T) {
	assert.Equal(t, "combat.events.abc", CombatEventsSubject("abc"))
}
