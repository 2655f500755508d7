// Package domain holds the core entities of the clinic platform and the
// wire events exchanged with dashboard clients.
package domain
