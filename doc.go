// Package skinos is a declarative registry of AMQP topic exchanges, queues
// and message handlers on top of a Watermill router.
//
// Exchanges are declared once with a default routing key. Handlers are
// attached to a queue with Registry.OnMessage, which also binds the queue to
// its exchange. Freezing the registry through NewService (or Registry.Build)
// turns every registered queue into one Consumer whose callbacks run in
// registration order. A handler returning false or OutcomePending leaves the
// delivery unacknowledged; any other result acknowledges it.
//
// A minimal setup declares an exchange, registers handlers, then runs:
//
//	reg := skinos.NewRegistry(opts...)
//	_, _ = reg.DeclareExchange("test", "test.*.*")
//	_, _ = reg.OnMessage("test", "test.test", "test.test.*").Handle(hello)
//	svc, err := skinos.NewService(conf, logger, reg, skinos.ServiceDependencies{})
//	if err != nil {
//		return err
//	}
//	return skinos.Run(ctx, svc)
//
// # Failures
//
// Handler errors are logged and optionally reported to Sentry. With
// ErrorPolicy.Reraise they propagate to the router and the delivery stays
// unacknowledged; otherwise they are swallowed and the delivery is
// acknowledged. Deliveries whose content type is not accepted are forwarded
// to the "failure" exchange, where OnFailure handlers can observe them.
//
// # Transports
//
// The transport is chosen by Config.PubSubSystem: "rabbitmq" declares real
// AMQP topic exchanges, "channel" routes in memory for tests and demos.
package skinos
