package database

// TestDSN exposes the integration DSN to the external test package.
var TestDSN = testDSN
