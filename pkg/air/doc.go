// Package air relays fixed-size datagrams between two statically paired
// bridge stations. Delivery is best effort: no acknowledgement, no
// retries, no ordering.
package air
