/*
Package a11ybridge keeps a remote assistive-technology service in sync with a
UI framework's semantics tree.

The framework delivers batches of semantics node updates. The bridge mirrors
them in an arena keyed by node ID, converts each node into the remote wire
representation, and streams size-bounded update messages, deletions for nodes
that became unreachable, and a commit barrier through a Transport. In the other
direction it answers hit-test queries against cached screen rectangles and
translates remote action requests into framework actions delivered to a
Delegate.

# Architecture

  - pkg/domain: semantics nodes, wire nodes, geometry and lifecycle hook types.
  - pkg/ports: the Transport and Delegate capability interfaces.
  - pkg/adapters: in-memory, Redis Streams and WebSocket transports; HTTP and MCP front ends.
  - internal/runtime: the update-cycle driver and the action bridge.

# Usage

	transport := memory.New()
	bridge := a11ybridge.New(transport,
		a11ybridge.WithDelegate(myFramework),
		a11ybridge.WithLogger(slog.Default()),
	)

	report, err := bridge.Update(ctx, updates, devicePixelRatio)
	if err != nil {
		// Some nodes were not delivered; the cycle still committed.
		log.Println(err)
	}
	log.Println("sent", len(report.Sent), "deleted", len(report.Deleted))

	hit := bridge.HitTest(x, y)
	bridge.DispatchRemoteAction(ctx, hit, domain.RemoteActionDefault)

A Bridge is safe for concurrent use. Delegate methods and lifecycle hooks must
not call back into the Bridge synchronously.
*/
package a11ybridge
