// ABOUTME: Version constants for the miditone project
// ABOUTME: Reported at startup and embedded in serial handshake logging
package version

// Overridable at build time with
// -ldflags "-X .../internal/version.Version=x.y.z".
var (
	// Version is the release version.
	Version = "0.1.0"

	// Product is the short product name used in logs.
	Product = "miditone"

	// Manufacturer identifies the project in device-facing strings.
	Manufacturer = "Miditone"
)
