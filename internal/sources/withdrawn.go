package sources

// ComputeWithdrawn returns the apps that are withdrawn after a manifest
// refresh: everything previously withdrawn plus everything that dropped out
// of the manifest, minus whatever the new manifest lists again. Previously
// withdrawn entries keep their order and come first.
func ComputeWithdrawn(oldWithdrawn, oldApps, newApps []string) []string {
	current := make(map[string]struct{}, len(newApps))
	for _, app := range newApps {
		current[app] = struct{}{}
	}

	seen := make(map[string]struct{}, len(oldWithdrawn)+len(oldApps))
	out := make([]string, 0, len(oldWithdrawn))
	add := func(app string) {
		if _, listed := current[app]; listed {
			return
		}
		if _, dup := seen[app]; dup {
			return
		}
		seen[app] = struct{}{}
		out = append(out, app)
	}

	for _, app := range oldWithdrawn {
		add(app)
	}
	for _, app := range oldApps {
		add(app)
	}
	return out
}
