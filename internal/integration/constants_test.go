package integration_test

const (
	// Performance related constants
	TestPerformanceTitle = "The Tempest"
	TestVenueId          = 1

	// Holder identities used across booking scenarios
	TestHolderAlice = "holder-alice"
	TestHolderBob   = "holder-bob"
)
