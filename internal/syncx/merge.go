package syncx

// ShallowMerge overlays remote fields onto a copy of local: on key
// collision the remote value wins. This is the documented
// "remote-wins-with-timestamp" strategy, not a semantic three-way merge.
// Neither input map is mutated.
func ShallowMerge(local, remote map[string]any) map[string]any {
	merged := make(map[string]any, len(local)+len(remote))
	for k, v := range local {
		merged[k] = v
	}
	for k, v := range remote {
		merged[k] = v
	}
	return merged
}
