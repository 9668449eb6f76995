package store

import "strings"

// Path joins segments into a document path.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// split returns the parent path and the collection name of a document path.
// For "Tokens/u1/User_tokens/SPOTIFY" that is ("Tokens/u1/User_tokens", "User_tokens").
func split(path string) (parent, collection string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	parent = path[:i]
	if j := strings.LastIndex(parent, "/"); j >= 0 {
		return parent, parent[j+1:]
	}
	return parent, parent
}
