package llm

// WithRetryBackOff exposes withRetry so tests can supply a zero-delay policy.
var WithRetryBackOff = withRetry
