// Package resolver locates a runtime executable.
//
// A runtime on the search path is used when "fernspielapparat --version"
// exits zero and prints exactly "<name> <version>". Otherwise the resolver
// falls back to the executable inside the install directory, provided it is
// readable and (except on Windows) executable. A NotFound failure means
// neither exists and the runtime has to be installed; the cause chain
// records why the search path probe failed, including VersionUnparseable
// for malformed output.
package resolver
