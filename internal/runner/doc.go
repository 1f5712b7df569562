// Package runner is the request-dispatch engine of flood.
//
// A run is described by a [Config] (target, worker count, total requests,
// per-request timeout, inter-request delay) and moves through four states:
// Configured, Running, Draining and Completed. [New] validates the config
// and fills a [WorkQueue] with exactly TotalRequests units. [Runner.Run]
// starts Concurrency workers; each one loops
//
//	unit := queue.TryDequeue()   // exit when empty
//	outcome := executor.Execute(ctx, target, timeout)
//	aggregator.Record(outcome)
//	sleep(InterRequestDelay)
//
// and Run returns once every worker has exited and every dequeued unit has
// been recorded, so Successes+Failures equals TotalRequests for a run that
// was not canceled.
//
// # Basic Usage
//
//	r, err := runner.New(runner.Config{
//		Target:        rawhttp.Target{Host: "example.com", Port: 443, UseTLS: true, Method: "GET", Path: "/"},
//		Concurrency:   10,
//		TotalRequests: 1000,
//		Timeout:       10 * time.Second,
//	}, runner.Options{Logger: logger})
//	if err != nil {
//		return err
//	}
//	result, err := r.Run(ctx)
//
// # Errors
//
// Only configuration problems are returned, as [*ConfigError]: a bad worker
// count, a bad port or an unresolvable host. Connect, TLS, write and read
// faults are recorded per unit and never abort the run.
//
// # Middleware
//
// Executors compose:
//   - [WithLogging]: log failed units
//   - [WithTracing]: one OpenTelemetry span per unit
package runner
