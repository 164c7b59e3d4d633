package status

import "bosko/model"

// Filter selects tracks in a listing.
type Filter string

const (
	FilterNone                    Filter = ""
	FilterPending                 Filter = "pending"
	FilterCompleted               Filter = "completed"
	FilterNeedsAssets             Filter = "needs_assets"
	FilterNeedsMarketplaceUpload  Filter = "needs_marketplace_upload"
	FilterNeedsMarketplacePublish Filter = "needs_marketplace_publish"
	FilterNeedsVideo              Filter = "needs_video"
)

var convenience = map[Filter][]Status{
	FilterNeedsAssets:             {Created, PartialAssets},
	FilterNeedsMarketplaceUpload:  {AssetsLinked},
	FilterNeedsMarketplacePublish: {AssetsUploadedMarketplace},
	FilterNeedsVideo:              {PublishedMarketplace},
}

// ParseFilter validates a filter name. Any Status value is also accepted.
func ParseFilter(s string) (Filter, bool) {
	f := Filter(s)
	switch f {
	case FilterNone, FilterPending, FilterCompleted:
		return f, true
	}
	if _, ok := convenience[f]; ok {
		return f, true
	}
	if _, ok := Parse(s); ok {
		return f, true
	}
	return "", false
}

// Match reports whether a track with the given status passes the filter.
func (f Filter) Match(t *model.Track, st Status) bool {
	switch f {
	case FilterNone:
		return true
	case FilterPending:
		return model.Deref(t.VideoURL) == ""
	case FilterCompleted:
		return model.Deref(t.VideoURL) != ""
	}
	if wanted, ok := convenience[f]; ok {
		for _, w := range wanted {
			if w == st {
				return true
			}
		}
		return false
	}
	return Status(f) == st
}
