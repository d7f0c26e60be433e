package domain

// Collection is one monitored NFT collection. ID is the marketplace
// collection identifier, Slug the human-readable feed slug.
type Collection struct {
	ID   string
	Slug string
	Name string
}

// ResolveCollectionID matches a feed collection reference (slug or id)
// against the monitored set. Unmatched references map to
// UnknownCollectionID rather than being rejected.
func ResolveCollectionID(ref string, monitored []Collection) string {
	if ref == "" {
		return UnknownCollectionID
	}
	for _, c := range monitored {
		if c.Slug == ref || c.ID == ref {
			return c.ID
		}
	}
	return UnknownCollectionID
}
