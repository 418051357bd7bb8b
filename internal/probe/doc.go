// Package probe polls the runtime's control port until it accepts TCP
// connections.
package probe
