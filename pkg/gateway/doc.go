// Package gateway binds wire requests to the restriction engine.
//
// Server answers GET_RESTRICTIONS, REGISTER and UNREGISTER requests
// arriving on transport connections. A registered connection is itself the
// subscriber channel, so its liveness follows the connection.
//
// Client is the matching requester. It correlates responses by message ID
// and surfaces notifications through a handler:
//
//	cc, _ := transport.NewClient(transport.ClientConfig{}).Connect(ctx, addr)
//	gc := gateway.NewClient(cc)
//	gc.SetNotificationHandler(func(s restriction.Snapshot) { fmt.Println(s) })
//	go cc.Serve(gc.HandleMessage)
//	current, err := gc.Register(ctx)
package gateway
