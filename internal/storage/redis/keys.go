package redis

// groupsKey holds the JSON group registry
func groupsKey(ns string) string {
	return ns + ":groups"
}

// knownUsersKey is a HASH of known users by key hash
func knownUsersKey(ns string) string {
	return ns + ":users"
}
