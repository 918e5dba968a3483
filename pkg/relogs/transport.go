package relogs

import "context"

// Transport delivers one table's batch to the ingestion backend.
//
// Send returns the backend status (or -1 when there was no response) and a
// non-nil error when the batch was not accepted. The client never retries
// and never inspects payloads; any return, including a panic, settles the
// batch. Implementations carry their own timeouts.
type Transport interface {
	Send(ctx context.Context, table string, batch []any) (int, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, table string, batch []any) (int, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, table string, batch []any) (int, error) {
	return f(ctx, table, batch)
}

// Interceptor redirects the host's logging entry points into the client.
// Install is called once during New with a track function bound to the
// default table; Restore is called at the start of End, before the final
// flush, so lines logged while draining are not captured.
type Interceptor interface {
	Install(track func(payload any))
	Restore()
}
