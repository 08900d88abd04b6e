// Package payment watches an order until the customer's transfer is confirmed, the
// countdown runs out, or the caller gives up.
//
// A [Watcher] listens on the notification websocket (keyed by order id) for a message
// carrying resCode "200". A dropped connection is redialed with exponential backoff,
// and while no connection is up the order status is polled instead. The countdown,
// the poller and the socket reader all belong to one [Watcher.Run] call and have
// stopped by the time it returns.
//
// # What this package must NOT do
//
//   - Compute prices. Amounts come from the checkout.
//   - Retry CancelOrder.
package payment
