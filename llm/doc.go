// Package llm is a small provider-agnostic model client.
//
// A Client routes a Request to a registered ProviderAdapter and runs it
// through a middleware chain (logging, retry). Two adapters ship with the
// package:
//
//   - OpenAIAdapter uses github.com/sashabaranov/go-openai and native tool
//     calling. It also serves OpenAI-compatible endpoints via a base URL.
//   - GollmAdapter wraps github.com/teilomillet/gollm for the other
//     providers gollm supports. Tool calls are recovered from JSON embedded
//     in the reply.
//
// Usage:
//
//	adapter, _ := llm.NewOpenAIAdapter(os.Getenv("OPENAI_API_KEY"))
//	client := llm.NewClient(
//	    llm.WithProvider("openai", adapter),
//	    llm.WithMiddleware(llm.LoggingMiddleware(), llm.RetryMiddleware(llm.DefaultRetryPolicy())),
//	)
//	resp, err := client.Complete(ctx, llm.Request{
//	    Model:    "gpt-4o",
//	    Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//
// Provider failures are reported through a typed hierarchy rooted at
// SDKError; IsRetryable tells transient failures from permanent ones.
package llm
