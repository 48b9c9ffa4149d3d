// Package shutdown coordinates graceful process termination.
//
// A Handler waits for SIGINT/SIGTERM (or an explicit Trigger), then runs
// the registered hooks in reverse registration order under a shared
// timeout, so components stop in the opposite order they were started.
//
//	h := shutdown.NewHandler(10*time.Second, log)
//	h.OnShutdown("redis", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
