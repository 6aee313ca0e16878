// Package model defines the provider boundary: a blocking "get a structured
// model reply" capability. Implementations adapt concrete vendor SDKs (see
// the openai and anthropic subpackages) to a single Complete call that sends
// an ordered message sequence plus a JSON schema and returns the raw reply
// text. The package also ships a MockModel for tests and examples.
package model
