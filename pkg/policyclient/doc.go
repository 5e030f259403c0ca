// Package policyclient provides the primary entry point for constructing a
// ten99policy API client.
//
// It layers configuration, the retrying HTTP transport and the optional
// response cache on top of the object model defined in the policy package.
// Objects returned by the client carry its options, so Refresh, Save and
// Delete on them go through the same transport.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/ten99policy/ten99policy-go/pkg/policy"
//	  "github.com/ten99policy/ten99policy-go/pkg/policyclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := policyclient.New(ctx, &policy.Config{
//	    APIKey:      "sk_test_...",
//	    Environment: policy.EnvironmentSandbox,
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  contractor, err := cli.Retrieve(ctx, policy.Contractors, "cn_123", nil)
//	  if err != nil { log.Fatal(err) }
//
//	  _ = contractor.Set("email", "jane@example.com")
//	  if err := contractor.Save(ctx); err != nil { log.Fatal(err) }
//	}
//
// # Caching
//
// Setting Config.Cache enables caching of GET responses. The memory backend
// is process local; the NATS backend stores entries in a JetStream key-value
// bucket shared between processes. Stale entries are revalidated with ETags.
//
// # Helpers
//
// NewWithKey and NewSandbox wrap New for the common production and sandbox
// setups.
package policyclient
