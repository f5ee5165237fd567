//go:build integration

package accountrepo

// Exposed for the external integration test package, which cannot live in
// package accountrepo because integrationtest imports it (via storage).

type Repo = repo

var TestRepoContract = testRepoContract
