package redis

const (
	// KeyPrefixBuild is the prefix for every key of a single build
	KeyPrefixBuild = "muffin:build:"
	// KeyCurrentBuild holds the ID of the build being served
	KeyCurrentBuild = "muffin:build:current"
	// KeyBuilds is the sorted set of build IDs scored by completion time
	KeyBuilds = "muffin:builds"
	// KeyHits is the hash of served counts by route
	KeyHits = "muffin:hits"
)

// BuildInfoKey returns the Redis key holding a build manifest
func BuildInfoKey(id string) string {
	return KeyPrefixBuild + id + ":info"
}

// BuildPagesKey returns the Redis key of the hash holding the pages of a build, by route
func BuildPagesKey(id string) string {
	return KeyPrefixBuild + id + ":pages"
}
