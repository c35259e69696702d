package httpapi

import "context"

// serverBaseCtx is canceled on daemon shutdown so handlers blocked on the
// single generation slot stop waiting. Defaults to Background until main
// installs the real one.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level context request handlers derive
// from.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts ties a generation to both the client connection and the daemon
// lifetime: the returned context is done when either side goes away. The
// cancel func must be called when the handler ends to release the watcher
// goroutine.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}
