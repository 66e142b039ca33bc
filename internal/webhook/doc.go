// Copyright 2025 The Threadrelay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package webhook provides the GitHub webhook endpoint of threadrelay.
//
// The server verifies each delivery, classifies the payload and hands the
// resulting event to the dispatch queue, which performs the Discord side
// effects on its single worker.
//
// Key features:
//   - Validates GitHub webhook signatures using HMAC-SHA256
//   - Classifies pull_request, pull_request_review, issue_comment,
//     pull_request_review_comment and push deliveries
//   - Suppresses redelivered X-GitHub-Delivery IDs for an hour
//   - Health check and readiness endpoints
//
// Webhook Security:
//
// All webhook requests must include an X-Hub-Signature-256 header containing
// an HMAC-SHA256 signature of the raw body computed with the webhook secret.
// Requests without the header are rejected with HTTP 400, requests whose
// signature does not match with HTTP 401.
//
// Acknowledgement:
//
// Once the signature is accepted the server always answers 200. It waits up
// to the configured acknowledgement timeout for the projection to finish so
// that failures show up in the same log context, then replies regardless of
// the outcome. GitHub gives up on deliveries after 10 seconds, so timeouts
// beyond that only affect logging.
//
// Example usage:
//
//	server := webhook.NewServer(webhook.Options{
//		Address:    "0.0.0.0",
//		Port:       5000,
//		Secret:     secret,
//		AckTimeout: 60 * time.Second,
//	}, classifier, queue)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
