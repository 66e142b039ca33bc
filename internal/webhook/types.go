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


package webhook

import "net/http"

// GitHub delivery headers.
const (
	HeaderSignature = "X-Hub-Signature-256"
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
)

// maxPayloadBytes is GitHub's upper bound for webhook payloads.
const maxPayloadBytes = 25 << 20

// Envelope is one received delivery: the raw body and the headers the
// relay cares about.
type Envelope struct {
	Payload    []byte
	Signature  string
	Event      string
	DeliveryID string
}

func newEnvelope(payload []byte, header http.Header) Envelope {
	return Envelope{
		Payload:    payload,
		Signature:  header.Get(HeaderSignature),
		Event:      header.Get(HeaderEvent),
		DeliveryID: header.Get(HeaderDelivery),
	}
}
