// Package testdb gives repository integration tests an isolated SurrealDB
// namespace with the embedded schema applied.
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t) // skipped unless HAVEN_INTEGRATION is set
//	    repo := repository.NewStoreRepository(tdb.DB)
//	}
//
// Connection settings come from TEST_DB_HOST, TEST_DB_PORT, TEST_DB_USER and
// TEST_DB_PASSWORD. The namespace is removed when the test finishes.
package testdb
