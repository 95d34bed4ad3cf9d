// Package definition reads workflow definitions from YAML or JSON documents.
//
// A document looks like:
//
//	name: Article
//	description: Editorial workflow
//	states:
//	  - {id: draft, name: Draft, isInitial: true}
//	  - {id: review, name: Review}
//	  - {id: published, name: Published, isFinal: true}
//	actions:
//	  - {id: submit, name: Submit, fromStates: [draft], toState: review}
//	  - {id: approve, name: Approve, fromStates: [review], toState: published}
//	  - {id: reject, name: Reject, fromStates: [review], toState: draft, enabled: false}
//
// The document shape is checked against an embedded JSON Schema before decoding.
// Structural rules (unique IDs, one initial state, known state references) are left
// to the definition validator so that every problem is reported in one pass.
// Actions are enabled unless the document says otherwise.
package definition
