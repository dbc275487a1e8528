// Package operations runs the dataset build as an ordered list of named
// steps.
//
// Each step is executed once in order. A step whose error is retryable
// is re-run with exponential backoff up to RetryConfig.MaxAttempts; any
// other failure stops the run and the remaining steps are marked
// skipped. Every attempt is logged, traced as a span and timed into the
// step duration histogram.
//
// The same backoff loop is exposed as Retry so feed clients can retry
// individual upstream requests.
//
// Example usage:
//
//	runner := operations.NewRunner(operations.RunnerOptions{
//		Retry:   operations.NewRetryConfig(),
//		Tracer:  tel.Tracer,
//		Metrics: tel.Metrics,
//		Logger:  logger,
//	})
//	results, err := runner.Run(ctx,
//		operations.NewStep("load-policy", "Load policy index", loadPolicy),
//		operations.NewStep("assemble", "Assemble dataset", assemble),
//	)
package operations
