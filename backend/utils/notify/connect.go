package notify

import (
	"fmt"
	"time"

	"taskboard/backend/utils/logging"

	"github.com/nats-io/nats.go"
)

// Connect opens the NATS connection used by publishers and subscribers.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Logger.Warnf("Event ID: NATS_DISCONNECTED, Description: Disconnected from NATS: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Logger.Infof("Event ID: NATS_RECONNECTED, Description: Reconnected to NATS at %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}
