// Package testutil provides builders for protocol-conformant model replies
// used across the test suites, keeping scripted JSON out of test bodies.
package testutil
