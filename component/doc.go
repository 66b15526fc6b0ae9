// Package component defines lifecycle-managed resources and the registry
// that starts and stops them.
//
// The registry starts components in registration order and stops them in
// reverse order, which is what the shutdown cleanup of a bootstrap.App
// does.
package component
