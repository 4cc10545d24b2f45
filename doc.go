// Package awsaccountname resolves AWS account IDs to human-readable names
// and keeps the mapping visible wherever accounts show up.
//
// # Overview
//
// AWS surfaces account IDs (12-digit numbers) in far more places than it
// surfaces account names. This module watches the two surfaces that matter
// most - the SSO access portal, which lists every account with its name,
// and the management console, which shows only the ID of the account you
// are signed into - and keeps them in sync:
//
//	┌──────────────┐   extracted      ┌──────────────┐
//	│ portal       │   accounts       │ accounts     │
//	│ pipeline     ├─────────────────►│ service      │
//	└──────────────┘  STORE_ACCOUNTS  └──────┬───────┘
//	                                         │
//	                                  ┌──────▼───────┐
//	┌──────────────┐ GET_ACCOUNT_NAME │ storage      │
//	│ console      ├─────────────────►│ (memory /    │
//	│ pipeline     │◄─────────────────┤  KV / dynamo)│
//	└──────┬───────┘   resolved name  └──────────────┘
//	       │
//	       ▼ display updates (badge + websocket gateway)
//
// The portal pipeline scrapes the account list from the portal document,
// retrying while the page hydrates, and forwards the batch to the accounts
// service. A mutation watcher re-extracts whenever the list changes.
//
// The console pipeline polls the console document for the account menu,
// resolves the account's name through a local cache and then the accounts
// service, and renders exactly one display update per page visit.
// Navigation within the console starts a fresh invocation.
//
// # Packages
//
// Pipelines and extraction:
//   - pipeline/portal: portal scrape-and-forward pipeline
//   - pipeline/console: console resolve-and-render pipeline
//   - extract: DOM and embedded-JSON account extraction
//
// Messaging and storage:
//   - message: request/response envelope types
//   - transport: Requester interface, NATS and in-memory implementations
//   - service/accounts: request handler backed by an AccountStore
//   - storage: memory, JetStream KV, and DynamoDB account stores
//
// Infrastructure:
//   - component: lifecycle contract and runner
//   - natsclient: NATS connection management
//   - config: file and environment configuration
//   - metric: Prometheus metrics registry
//   - health: component health aggregation
//   - gateway/ws: websocket broadcast of display updates
//   - errors: classified error handling (transient / invalid / fatal)
//
// Utilities:
//   - pkg/retry: bounded retry with exponential or linear backoff
//   - pkg/dom: document abstraction, readiness and mutation watching
//   - pkg/cache: TTL-aware LRU cache
//   - pkg/tlsutil: client TLS configuration
package awsaccountname
