//go:build integration

package transferrepo

// Exposed for the external integration test package, which cannot live in
// package transferrepo because integrationtest imports it (via storage).

type Repo = repo

var TestRepoContract = testRepoContract
