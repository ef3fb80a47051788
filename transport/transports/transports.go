// Package transports imports all built-in transports for auto-registration.
package transports

import (
	_ "github.com/drblury/skinos/transport/channel"
	_ "github.com/drblury/skinos/transport/rabbitmq"
)
